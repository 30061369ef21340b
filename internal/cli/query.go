package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd(e *env) *cobra.Command {
	var (
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL query and print the result",
		Long: `Run a SQL query against the selected connection.

FORMAT JSON is added to Tinybird queries that carry no FORMAT clause.
--raw sends the statement untouched and prints the response body.

Examples:
  birdq query "SELECT count() FROM events"
  birdq query --json "SELECT * FROM top_pages LIMIT 5"
  birdq -c staging query --raw "SELECT 1 FORMAT JSON"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := strings.Join(args, " ")
			if err := e.connect(cmd.Context(), false); err != nil {
				return err
			}
			defer e.close()

			if raw {
				payload, err := e.service.SendQuery(cmd.Context(), sql)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(e.out, string(payload))
				return err
			}

			exec, err := e.service.ExecuteQuery(cmd.Context(), sql)
			if err != nil {
				return err
			}
			if asJSON {
				return writeExecutionJSON(e.out, exec)
			}
			return writeExecution(e.out, exec)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed result as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response body as returned by the server")
	cmd.MarkFlagsMutuallyExclusive("json", "raw")
	return cmd
}

func newTablesCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"ls"},
		Short:   "List datasources and pipes with their columns",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.connect(cmd.Context(), false); err != nil {
				return err
			}
			defer e.close()

			entries, err := e.service.LoadSchema(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(e.out, entries)
			}
			return writeEntries(e.out, entries)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resources as JSON")
	return cmd
}

func newPingCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the connection answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.connect(cmd.Context(), true); err != nil {
				return err
			}
			defer e.close()

			_, err := fmt.Fprintf(e.out, "ok: %s (%s)\n", e.service.ConnectionName(), e.service.RunnerName())
			return err
		},
	}
}
