package cmd

import (
	"github.com/spf13/cobra"

	"github.com/reglet-dev/permstore/application/schema"
)

func newSchemaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "schema [config|entry]",
		Short:     "Print the JSON schema of the config file or of list entries",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "entry"},
		RunE: func(cmd *cobra.Command, args []string) error {
			generate := schema.ConfigSchema
			if len(args) == 1 && args[0] == "entry" {
				generate = schema.EntrySchema
			}
			out, err := generate()
			if err != nil {
				return err
			}
			_, err = a.out.Write(append(out, '\n'))
			return err
		},
	}
}
