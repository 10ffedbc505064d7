package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/hivdash/hivdash/store"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

const defaultStore = "hivdash.json"

// CLI is the viper-driven command line for hivdash
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer
	errOut    io.Writer
	logs      *loggers
}

// NewCLI creates the CLI writing results to out and diagnostics to errOut
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		errOut:    errOut,
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// Execute runs the command line in args
func (cli *CLI) Execute(args []string) error {
	cli.rootCmd.SetArgs(args)
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)
	defer func() {
		if cli.logs != nil {
			_ = cli.logs.Close()
			cli.logs = nil
		}
	}()
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	// HIVDASH_CONFIG points at a config file anywhere on disk
	if configFile := os.Getenv("HIVDASH_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		// hivdash.yaml, hivdash.json, ... in the usual places
		cli.viperInst.SetConfigName("hivdash")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.hivdash")
		cli.viperInst.AddConfigPath("/etc/hivdash")
	}

	cli.viperInst.SetEnvPrefix("HIVDASH")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	// a missing config file is fine
	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "hivdash",
		Short: "hivdash - HIV case records and dashboard views",
		Long: `hivdash stores HIV case records (entity, code, year, deaths, incidence)
and computes the dashboard views over them: yearly comparison, distribution,
composition, word cloud, relationship and world maps.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (HIVDASH_*)
3. Configuration files (custom path or default locations)

Configuration File Discovery:
  HIVDASH_CONFIG=/path/to/config.yaml   # Custom config file path
  ./hivdash.yaml                        # Current directory
  ~/.hivdash/hivdash.yaml               # User directory
  /etc/hivdash/hivdash.yaml             # System directory

Examples:
  # Import a CSV file into a SQLite store
  hivdash --store cases.db import cases.csv

  # List the records of 1990, largest incidence first
  hivdash list --search 1990 --sort incidence --desc

  # Serve the HTTP API
  hivdash serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())
			logs, err := initLogging(cli.viperInst.GetString("log-level"), cli.viperInst.GetBool("verbose"), cli.errOut)
			if err != nil {
				return NewConfigError("start", "logging could not be initialized", err)
			}
			cli.logs = logs
			return nil
		},
	}

	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("store", "s", defaultStore, "Record store: a .json or .db path, json://, sqlite:// or memory://")
	flags.String("world", "", "World GeoJSON file for the maps (embedded sample when empty)")
	flags.StringP("format", "f", "table", "Output format (table|json|yaml|csv)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.BoolP("quiet", "q", false, "Suppress headers and progress output")
	flags.BoolP("verbose", "v", false, "Also write logs to stderr")

	for _, flag := range []string{"store", "world", "format", "log-level", "quiet", "verbose"} {
		_ = cli.viperInst.BindPFlag(flag, flags.Lookup(flag))
	}
}

// addCommands adds every subcommand
func (cli *CLI) addCommands() {
	cli.addServeCommand()

	cli.addAddCommand()
	cli.addGetCommand()
	cli.addListCommand()
	cli.addUpdateCommand()
	cli.addDeleteCommand()

	cli.addImportCommand()
	cli.addExportCommand()

	cli.addViewCommand()
	cli.addChartCommand()

	cli.addMigrateCommand()
}

func (cli *CLI) logger() *slog.Logger {
	if cli.logs == nil {
		return slog.Default()
	}
	return cli.logs.main
}

func (cli *CLI) logOperation(operation string, args ...any) {
	if cli.logs != nil {
		cli.logs.logOperation(operation, args...)
	}
}

// openStore opens the configured store with metrics enabled
func (cli *CLI) openStore(operation string) (types.Store, error) {
	dsn := cli.viperInst.GetString("store")
	s, err := store.Open(dsn)
	if err != nil {
		return nil, NewConfigError(operation, fmt.Sprintf("cannot open store %q", dsn), err)
	}
	cli.logger().Debug("store opened", "store", dsn)
	return store.Instrument(s), nil
}

// withStore opens the store, runs fn and closes the store
func (cli *CLI) withStore(cmd *cobra.Command, operation string, fn func(ctx context.Context, s types.Store) error) error {
	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := fn(cmd.Context(), s); err != nil {
		return WrapError(operation, err)
	}
	return nil
}

func (cli *CLI) formatter() *OutputFormatter {
	return NewOutputFormatter(cli.viperInst.GetString("format"), cli.viperInst.GetBool("quiet"))
}
