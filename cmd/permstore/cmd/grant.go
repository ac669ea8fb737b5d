package cmd

import (
	stdErrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/permstore/application/permission"
	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/errors"
)

func newGrantCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "grant PATH...",
		Short: "Record persistent access to files or directories",
		Long: `Mint a token for each PATH and record it in the permission store.
Granting a directory covers everything beneath it. Granting a path that
already has a grant replaces the old token.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *permission.Store) error {
				return runGrant(a, s, args, yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Grant without asking for confirmation")
	return cmd
}

func runGrant(a *app, s *permission.Store, paths []string, yes bool) error {
	ids := make([]entities.ResourceID, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, s.Identity(p))
	}

	if !yes {
		p := a.newPrompter()
		if !p.IsInteractive() {
			return p.FormatNonInteractiveError(ids)
		}
		approved, err := p.ConfirmGrants(ids)
		if err != nil {
			return err
		}
		ids = approved
	}

	var errs []error
	for _, id := range ids {
		if _, err := s.Mint(id.Path()); err != nil {
			errs = append(errs, err)
			_, _ = errColor.Fprintf(a.out, "failed  %s: %v\n", id, errors.ToErrorDetail(err))
			continue
		}
		_, _ = okColor.Fprintf(a.out, "granted %s\n", id)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d grants failed: %w", len(errs), len(ids), stdErrors.Join(errs...))
	}
	if !s.Persistent() {
		_, _ = warnColor.Fprintf(a.out, "warning: %s could not be written; grants last until exit\n", s.Path())
	}
	return nil
}
