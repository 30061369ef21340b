// Package cli wires the birdq command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/joacominatel/birdq/internal/app"
	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/logging"
	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/runner/builtin"
	"github.com/joacominatel/birdq/internal/tui"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

const logFile = "birdq.log"

var errNoConnection = errors.New("no connection configured: run `birdq connections add` or pass --token")

// Options holds the global flags.
type Options struct {
	ConfigDir  string
	Connection string
	LogLevel   string
	URL        string
	Token      string
}

// env is the state shared by every command once setup has run.
type env struct {
	opts   Options
	out    io.Writer
	errOut io.Writer

	logger   *log.Logger
	loader   *config.Loader
	cfg      *config.Config
	registry *runner.Registry
	secrets  *config.Secrets
	service  *app.Service
	closers  []io.Closer
}

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	e := &env{out: out, errOut: errOut}

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "birdq",
		Short: "Query Tinybird from the terminal.",
		Long: `birdq runs SQL against Tinybird workspaces and explores their datasources
and pipes. Without a subcommand it starts the interactive interface.

Connections are saved in ~/.birdq/config.yaml; tokens live in the OS keyring.
TB_TOKEN and TB_HOST are used when --token and --url are not given.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runTUI(cmd.Context())
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.opts.ConfigDir, "config", "", "configuration directory (default ~/.birdq)")
	flags.StringVarP(&e.opts.Connection, "connection", "c", "", "saved connection to use")
	flags.StringVar(&e.opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&e.opts.URL, "url", "", "Tinybird API URL for an ad-hoc connection")
	flags.StringVar(&e.opts.Token, "token", "", "Tinybird auth token for an ad-hoc connection")

	rootCmd.AddCommand(newQueryCmd(e))
	rootCmd.AddCommand(newTablesCmd(e))
	rootCmd.AddCommand(newPingCmd(e))
	rootCmd.AddCommand(newSchemaCmd(e))
	rootCmd.AddCommand(newConnectionsCmd(e))

	return rootCmd
}

// setup loads the configuration and builds the runner registry and service.
// The interactive interface logs to a file so the screen stays clean; every
// other command logs to stderr at warn unless --log-level says otherwise.
func (e *env) setup(toFile bool) error {
	loader, err := config.NewLoader(e.opts.ConfigDir)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	e.loader = loader
	e.cfg = cfg

	if toFile {
		level := e.opts.LogLevel
		if level == "" {
			level = cfg.Preferences.LogLevel
		}
		logger, closer, err := logging.NewFile(filepath.Join(loader.Dir(), logFile), level)
		if err != nil {
			return err
		}
		e.logger = logger
		e.closers = append(e.closers, closer)
	} else {
		level := e.opts.LogLevel
		if level == "" {
			level = "warn"
		}
		logger, err := logging.New(e.errOut, level)
		if err != nil {
			return err
		}
		e.logger = logger
	}

	e.registry = builtin.NewRegistry(e.logger)
	e.secrets = config.NewSecrets()
	e.service = app.NewService(e.registry, e.secrets, e.logger)
	return nil
}

func (e *env) close() {
	if e.service != nil {
		if err := e.service.Disconnect(); err != nil {
			e.logger.Debug("disconnect", "error", err)
		}
	}
	for _, c := range e.closers {
		_ = c.Close()
	}
	e.closers = nil
}

// adHocToken returns the token given on the command line or in TB_TOKEN.
func (e *env) adHocToken() string {
	if e.opts.Token != "" {
		return e.opts.Token
	}
	return os.Getenv("TB_TOKEN")
}

func (e *env) adHocURL() string {
	if e.opts.URL != "" {
		return e.opts.URL
	}
	return os.Getenv("TB_HOST")
}

// connection picks the connection a command works against: --connection,
// then an ad-hoc token, then the configured default.
func (e *env) connection() (config.Connection, error) {
	if e.opts.Connection != "" {
		c := e.cfg.FindConnection(e.opts.Connection)
		if c == nil {
			return config.Connection{}, fmt.Errorf("connection %q not found in %s", e.opts.Connection, e.loader.Path())
		}
		return *c, nil
	}
	if token := e.adHocToken(); token != "" {
		return app.TinybirdConnection(e.adHocURL(), token), nil
	}
	if c := config.DefaultConnection(e.cfg); c != nil {
		return *c, nil
	}
	return config.Connection{}, errNoConnection
}

// connect runs setup and opens the connection for one-shot commands. Only
// verify runs the connection test; query failures carry their own cause.
func (e *env) connect(ctx context.Context, verify bool) error {
	if err := e.setup(false); err != nil {
		return err
	}
	conn, err := e.connection()
	if err != nil {
		return err
	}
	e.logger.Debug("connecting", "connection", conn.Name, "type", conn.Type)
	if verify {
		return e.service.Connect(ctx, conn)
	}
	return e.service.Open(conn)
}

func (e *env) runTUI(ctx context.Context) error {
	if err := e.setup(true); err != nil {
		return err
	}
	defer e.close()

	if err := theme.Apply(e.cfg.Preferences.Theme); err != nil {
		e.logger.Warn("falling back to default theme", "error", err)
	}

	var initial *config.Connection
	if e.opts.Connection != "" || e.adHocToken() != "" || e.cfg.Preferences.DefaultConnection != "" {
		conn, err := e.connection()
		if err != nil {
			return err
		}
		initial = &conn
	}

	model := tui.NewModel(tui.Options{
		Service:  e.service,
		Config:   e.cfg,
		Loader:   e.loader,
		Secrets:  e.secrets,
		Registry: e.registry,
		Initial:  initial,
	})
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
