package main

import (
	"codeshare/domain"
	"codeshare/repositories"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func NewChainCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "chain <session-id>",
		Short:        "Print the ledger chain of an archived session",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(opts, func(repository repositories.ArchiveRepository) error {
				return runChain(cmd.OutOrStdout(), repository, domain.SessionID(args[0]))
			})
		},
	}
}

func runChain(w io.Writer, repository repositories.ArchiveRepository, sessionID domain.SessionID) error {
	archive, err := repository.Get(sessionID)
	if err != nil {
		return err
	}
	table := newTable(w, []string{"Index", "Timestamp", "User", "Action", "Payload", "Hash"})
	for _, block := range archive.Chain {
		table.Append([]string{
			strconv.Itoa(block.Index),
			block.Timestamp.Format(time.RFC3339Nano),
			block.UserID,
			block.Action,
			abbreviate(block.Payload, 60),
			abbreviate(block.Hash, 12),
		})
	}
	table.Render()
	return nil
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
