package cmd

import (
	stdErrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/permstore/application/permission"
	"github.com/reglet-dev/permstore/domain/errors"
)

func newActivateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate [PATH...]",
		Short: "Redeem stored grants and report which are usable",
		Long: `Every recorded grant is redeemed when the store opens. Without
arguments, activate reports the outcome for each of them. With PATH
arguments it retries those resources and fails if any cannot be
activated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *permission.Store) error {
				if len(args) == 0 {
					return reportActivation(a, s)
				}
				return runActivate(a, s, args)
			})
		},
	}
}

func runActivate(a *app, s *permission.Store, paths []string) error {
	var errs []error
	for _, p := range paths {
		id := s.Identity(p)
		err := s.Activate(p)
		switch {
		case err == nil:
			_, _ = okColor.Fprintf(a.out, "active  %s\n", id)
		case stdErrors.Is(err, errors.ErrNoGrant):
			_, _ = warnColor.Fprintf(a.out, "no grant %s\n", id)
		case errors.IsStale(err):
			_, _ = warnColor.Fprintf(a.out, "stale   %s (grant it again)\n", id)
		default:
			_, _ = errColor.Fprintf(a.out, "failed  %s: %v\n", id, errors.ToErrorDetail(err))
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d resources not activated: %w", len(errs), len(paths), stdErrors.Join(errs...))
	}
	return nil
}

func reportActivation(a *app, s *permission.Store) error {
	entries := s.Entries()
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.out, "No grants recorded.")
		return nil
	}
	for _, e := range entries {
		switch e.LastFailure {
		case "":
			_, _ = okColor.Fprintf(a.out, "%-8s %s\n", e.State, e.Resource)
		default:
			_, _ = warnColor.Fprintf(a.out, "%-8s %s (%s)\n", e.State, e.Resource, e.LastFailure)
		}
	}
	return nil
}
