package cmd

import (
	stdErrors "errors"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/permstore/application/permission"
)

func newRevokeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke PATH...",
		Short: "Forget recorded grants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *permission.Store) error {
				var errs []error
				for _, p := range args {
					if err := s.Revoke(p); err != nil {
						errs = append(errs, err)
						continue
					}
					_, _ = okColor.Fprintf(a.out, "revoked %s\n", s.Identity(p))
				}
				return stdErrors.Join(errs...)
			})
		},
	}
}
