package main

import (
	"codeshare/auth"
	"codeshare/domain"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewTokenCommand mints a gateway token for local testing.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var displayName string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:          "token <user-id>",
		Short:        "Mint a bearer token signed with AUTH_SECRET",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, err := auth.NewTokenValidator(opts.Config.AuthSecret)
			if err != nil {
				return err
			}
			token, err := validator.GenerateToken(domain.Identity{UserID: args[0], DisplayName: displayName}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
