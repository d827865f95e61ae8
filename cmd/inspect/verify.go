package main

import (
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"codeshare/repositories"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "verify <session-id>",
		Short:        "Re-verify the chain and seal of an archived session",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyring, err := opts.Config.Keyring()
			if err != nil {
				return err
			}
			return withRepository(opts, func(repository repositories.ArchiveRepository) error {
				return runVerify(cmd.OutOrStdout(), opts, repository, keyring, domain.SessionID(args[0]))
			})
		},
	}
}

// runVerify fails when the chain is broken or the seal does not match. A
// missing keyring only skips the seal check.
func runVerify(w io.Writer, opts *RootOptions, repository repositories.ArchiveRepository,
	keyring *ledger.Keyring, sessionID domain.SessionID) error {
	archive, err := repository.Get(sessionID)
	if err != nil {
		return err
	}

	verification := ledger.VerifyChain(archive.Chain)
	if !verification.Valid {
		fmt.Fprintf(w, "%s chain of %s breaks at block %d: %s\n",
			paint(opts, color.New(color.FgRed, color.OpBold), "TAMPERED"), sessionID, verification.FirstInvalid, verification.Reason)
		return verification.Err()
	}
	fmt.Fprintf(w, "%s chain of %s, %d blocks\n", paint(opts, color.New(color.FgGreen), "VALID"), sessionID, verification.Length)

	switch {
	case keyring == nil:
		fmt.Fprintln(w, paint(opts, color.New(color.FgYellow), "SKIPPED")+" seal, no LEDGER_SEAL_KEY configured")
	case archive.Seal.Signature == "":
		fmt.Fprintln(w, paint(opts, color.New(color.FgRed, color.OpBold), "UNSEALED")+" archive carries no seal")
		return errors.ErrInvalidSeal
	default:
		if err := keyring.VerifySeal(string(sessionID), archive.Chain, archive.Seal); err != nil {
			fmt.Fprintf(w, "%s %v\n", paint(opts, color.New(color.FgRed, color.OpBold), "TAMPERED"), err)
			return err
		}
		fmt.Fprintf(w, "%s seal, key %s\n", paint(opts, color.New(color.FgGreen), "VALID"), archive.Seal.KeyID)
	}
	return nil
}
