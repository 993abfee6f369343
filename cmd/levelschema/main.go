package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tordrt/levelschema"
	"github.com/tordrt/levelschema/internal/config"
	"github.com/tordrt/levelschema/internal/db"
	"github.com/tordrt/levelschema/internal/logging"
)

// app carries the state shared by every subcommand once the persistent flags
// have been resolved.
type app struct {
	cfgFile  string
	dbURL    string
	logLevel string
	ssl      bool
	caCert   string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "levelschema",
		Short: "Manage the levels and max_id tables of a Tezos indexer",
		Long: `levelschema creates, inspects and verifies the common tables of a Tezos indexer:
levels (one row per indexed block level, with its block hash) and max_id
(a single-row id counter). PostgreSQL, MySQL and SQLite are supported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initializeConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Path to the TOML config file (default: ./"+config.DefaultFileName+" when present)")
	flags.StringVar(&a.dbURL, "db-url", "", "Database URL: postgres://, mysql:// or sqlite:// (Env: DATABASE_URL, LEVELSCHEMA_DATABASE_URL)")
	flags.StringVar(&a.logLevel, "log-level", "", "Logging level: debug, info, warn, error (Env: LEVELSCHEMA_LOGGING_LEVEL)")
	flags.BoolVar(&a.ssl, "ssl", false, "Connect to PostgreSQL over TLS")
	flags.StringVar(&a.caCert, "ca-cert", "", "PEM root certificate used to verify the PostgreSQL server (requires --ssl)")

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newGenerateSQLCmd(),
		newDescribeCmd(a),
		newVerifyCmd(a),
		newConfigCmd(),
	)

	return rootCmd
}

// initializeConfig loads the configuration (.env, file, environment) and
// applies the command line on top of it.
func (a *app) initializeConfig(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}

	overrides := config.Overrides{
		DatabaseURL: a.dbURL,
		LogLevel:    a.logLevel,
		CACert:      a.caCert,
	}
	if cmd.Flags().Changed("ssl") {
		overrides.SSL = &a.ssl
	}
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	a.cfg = cfg
	a.log = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// connect opens the configured database.
func (a *app) connect(ctx context.Context) (*db.Conn, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, fmt.Errorf("%w (use --db-url, DATABASE_URL or %s)", err, config.DefaultFileName)
	}

	conn, err := db.Open(ctx, a.cfg.Database.URL, db.TLSOptions{SSL: a.cfg.Database.SSL, CACert: a.cfg.Database.CACert})
	if err != nil {
		return nil, err
	}
	a.log.WithField("dialect", conn.Dialect).Debug("Connected to database")
	return conn, nil
}

// options builds the root package options from the resolved configuration.
func (a *app) options(schemaName string) (*levelschema.Options, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, fmt.Errorf("%w (use --db-url, DATABASE_URL or %s)", err, config.DefaultFileName)
	}
	if schemaName == "" {
		schemaName = a.cfg.Database.Schema
	}
	return &levelschema.Options{
		SchemaName: schemaName,
		TLS:        db.TLSOptions{SSL: a.cfg.Database.SSL, CACert: a.cfg.Database.CACert},
		Logger:     a.log,
	}, nil
}

// closeConn closes conn and logs a failure instead of returning it.
func (a *app) closeConn(conn *db.Conn) {
	if err := conn.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database connection")
	}
}

func parseTableList(tables string) []string {
	if strings.TrimSpace(tables) == "" {
		return nil
	}

	var out []string
	for _, t := range strings.Split(tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
