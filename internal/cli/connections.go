package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/runner/tinybird"
)

func newConnectionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage saved connections",
	}
	cmd.AddCommand(newConnectionsListCmd(e))
	cmd.AddCommand(newConnectionsAddCmd(e))
	cmd.AddCommand(newConnectionsRemoveCmd(e))
	return cmd
}

func newConnectionsListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := e.setup(false); err != nil {
				return err
			}
			defer e.close()

			if len(e.cfg.Connections) == 0 {
				_, err := fmt.Fprintln(e.out, "no saved connections")
				return err
			}
			return writeConnections(e.out, e.cfg)
		},
	}
}

func newConnectionsAddCmd(e *env) *cobra.Command {
	var (
		kind       string
		options    map[string]string
		setDefault bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a connection",
		Long: `Save a connection profile. Secret options such as the Tinybird token are
stored in the OS keyring, never in the configuration file.

Examples:
  birdq connections add prod --token p.eyJ1Ijo...
  birdq connections add us --url https://api.us-east.tinybird.co --token p.eyJ1Ijo... -o timeout=60
  birdq connections add warehouse --type pg -o dsn=postgres://localhost/analytics`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := e.setup(false); err != nil {
				return err
			}
			defer e.close()

			name := args[0]
			if e.cfg.HasConnection(name) {
				return fmt.Errorf("connection %q already exists", name)
			}

			conn := config.Connection{Name: name, Type: kind, Options: map[string]any{}}
			for k, v := range options {
				conn.Options[k] = v
			}
			if kind == tinybird.Type {
				if u := e.adHocURL(); u != "" {
					conn.Options["url"] = u
				}
				if tok := e.adHocToken(); tok != "" {
					conn.Options["token"] = tok
				}
			}
			if err := conn.Validate(e.registry); err != nil {
				return err
			}

			// Building the runner checks required and typed options without
			// touching the network.
			r, err := e.registry.New(kind, conn.Settings())
			if err != nil {
				return err
			}
			_ = r.Close()

			schema, _ := e.registry.Schema(kind)
			if err := e.secrets.Extract(&conn, schema); err != nil {
				return fmt.Errorf("store secrets: %w", err)
			}
			e.cfg.AddConnection(conn)
			if setDefault {
				e.cfg.Preferences.DefaultConnection = name
			}
			if err := e.loader.Save(e.cfg); err != nil {
				return err
			}

			_, err = fmt.Fprintf(e.out, "saved connection %s (%s)\n", name, conn.DisplayString())
			return err
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", tinybird.Type, "runner type")
	cmd.Flags().StringToStringVarP(&options, "option", "o", nil, "runner option as key=value (repeatable)")
	cmd.Flags().BoolVar(&setDefault, "default", false, "make this the default connection")
	return cmd
}

func newConnectionsRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved connection and its secrets",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := e.setup(false); err != nil {
				return err
			}
			defer e.close()

			name := args[0]
			conn := e.cfg.FindConnection(name)
			if conn == nil {
				return fmt.Errorf("connection %q not found", name)
			}
			schema, _ := e.registry.Schema(conn.Type)
			if err := e.secrets.Delete(name, schema); err != nil {
				return fmt.Errorf("delete secrets: %w", err)
			}
			e.cfg.RemoveConnection(name)
			if err := e.loader.Save(e.cfg); err != nil {
				return err
			}

			_, err := fmt.Fprintf(e.out, "removed connection %s\n", name)
			return err
		},
	}
}
