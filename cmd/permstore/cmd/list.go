package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/permstore/application/permission"
	"github.com/reglet-dev/permstore/domain/entities"
)

func newListCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded grants",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q: use text, json or yaml", output)
			}
			return a.withStore(func(s *permission.Store) error {
				return writeEntries(a, s.Entries(), output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json, yaml")
	return cmd
}

func writeEntries(a *app, entries []entities.Entry, output string) error {
	switch output {
	case "json":
		if entries == nil {
			entries = []entities.Entry{}
		}
		encoder := json.NewEncoder(a.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "yaml":
		out, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = a.out.Write(out)
		return err
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.out, "No grants recorded.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RESOURCE\tSTATE\tFAILURES\tGRANTED")
	for _, e := range entries {
		state := e.State.String()
		if e.LastFailure != entities.FailureNone {
			state += " (" + string(e.LastFailure) + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Resource, state, e.Failures, e.GrantedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
