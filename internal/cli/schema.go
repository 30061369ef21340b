package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [type]",
		Short: "Show the configuration schema of a runner type",
		Long: `Without arguments, list the registered runner types.
With a type, print its configuration schema as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := e.setup(false); err != nil {
				return err
			}
			defer e.close()

			if len(args) == 0 {
				for _, kind := range e.registry.Kinds() {
					if _, err := fmt.Fprintln(e.out, kind); err != nil {
						return err
					}
				}
				return nil
			}

			schema, ok := e.registry.Schema(args[0])
			if !ok {
				return fmt.Errorf("unknown runner type %q", args[0])
			}
			return writeJSON(e.out, schema)
		},
	}
}
