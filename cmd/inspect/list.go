package main

import (
	"codeshare/repositories"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List archived sessions",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(opts, func(repository repositories.ArchiveRepository) error {
				return runList(cmd.OutOrStdout(), repository)
			})
		},
	}
}

func runList(w io.Writer, repository repositories.ArchiveRepository) error {
	archives, err := repository.List()
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		_, err := fmt.Fprintln(w, "No archived session")
		return err
	}

	table := newTable(w, []string{"Session", "Language", "Owner", "Revision", "Blocks", "Sealed", "Evicted at"})
	for _, archive := range archives {
		table.Append([]string{
			string(archive.SessionID),
			archive.Language,
			archive.OwnerID,
			strconv.FormatUint(archive.Revision, 10),
			strconv.Itoa(len(archive.Chain)),
			strconv.FormatBool(archive.Seal.Signature != ""),
			archive.EvictedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
