package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/hivdash/hivdash/migrate"
	"github.com/arthur-debert/hivdash/hivdash/store"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func (cli *CLI) addMigrateCommand() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Check stored records and move them between stores",
		Long: `Maintenance commands for the record store.

  validate  report records with empty names, missing years or non-numeric values
  copy      copy every record into another store, for example a JSON file into SQLite`,
		Example: `  # Report data-quality problems
  hivdash migrate validate

  # Move a JSON store into SQLite
  hivdash --store hivdash.json migrate copy cases.db`,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Report data-quality problems in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withStore(cmd, "migrate validate", func(ctx context.Context, s types.Store) error {
				records, err := s.ListAll(ctx)
				if err != nil {
					return err
				}
				result := migrate.Validate(records, cli.migrateOptions(false))
				cli.logOperation("migrate validate", "total", result.Stats.TotalRecords, "flagged", result.Stats.AffectedRecords)
				return cli.handleMigrateResult("migrate validate", result, false)
			})
		},
	}

	copyCmd := &cobra.Command{
		Use:   "copy <store>",
		Short: "Copy every record into another store",
		Long: `Copy every record of the current store into the destination store, in
insertion order. The destination assigns new ids. A record the destination
rejects is reported and the copy goes on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if args[0] == cli.viperInst.GetString("store") {
				return NewValidationError("migrate copy", "store", args[0],
					"Choose a destination different from --store")
			}

			return cli.withStore(cmd, "migrate copy", func(ctx context.Context, s types.Store) error {
				records, err := s.ListAll(ctx)
				if err != nil {
					return err
				}

				dst, err := store.Open(args[0])
				if err != nil {
					return NewConfigError("migrate copy", fmt.Sprintf("cannot open store %q", args[0]), err)
				}
				defer func() { _ = dst.Close() }()

				result := migrate.Copy(ctx, records, dst, cli.migrateOptions(dryRun), cli.logger())
				cli.logOperation("migrate copy", "to", args[0], "dry_run", dryRun,
					"copied", result.Stats.AffectedRecords, "failed", result.Stats.FailedRecords)
				return cli.handleMigrateResult("migrate copy", result, dryRun)
			})
		},
	}
	copyCmd.Flags().Bool("dry-run", false, "Report what would be copied without writing")

	cmd.AddCommand(validateCmd, copyCmd)
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) migrateOptions(dryRun bool) migrate.Options {
	return migrate.Options{DryRun: dryRun, Verbose: cli.viperInst.GetBool("verbose")}
}

func (cli *CLI) printMigrateMessage(msg migrate.Message) {
	verbose := cli.viperInst.GetBool("verbose")
	switch msg.Level {
	case migrate.LevelError:
		fmt.Fprintf(cli.errOut, "ERROR: %s\n", msg.Text)
	case migrate.LevelWarning:
		fmt.Fprintf(cli.errOut, "WARN: %s\n", msg.Text)
	case migrate.LevelInfo:
		if !cli.quiet() {
			fmt.Fprintln(cli.out, msg.Text)
		}
	case migrate.LevelDebug:
		if verbose {
			fmt.Fprintf(cli.out, "DEBUG: %s\n", msg.Text)
		}
	}

	if verbose && msg.Details != nil {
		keys := make([]string, 0, len(msg.Details))
		for k := range msg.Details {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(cli.out, "  %s: %v\n", k, msg.Details[k])
		}
	}
}

// handleMigrateResult prints the result and turns a failed one into an error
func (cli *CLI) handleMigrateResult(operation string, result *migrate.Result, dryRun bool) error {
	of := cli.formatter()
	if of.format != "table" {
		if err := of.Value(cli.out, result); err != nil {
			return err
		}
	} else {
		for _, msg := range result.Messages {
			cli.printMigrateMessage(msg)
		}
		if !cli.quiet() {
			fmt.Fprintf(cli.out, "%d/%d records affected\n", result.Stats.AffectedRecords, result.Stats.TotalRecords)
			if dryRun {
				fmt.Fprintln(cli.out, "(dry run: no changes applied)")
			}
		}
	}

	if result.Success {
		return nil
	}

	cause := "the operation did not complete"
	var suggestions []string
	switch result.Code {
	case migrate.CodeValidationError:
		cause = fmt.Sprintf("%d records have errors", result.Count(migrate.LevelError))
		suggestions = []string{"Fix the records with 'hivdash update <id>' or remove them with 'hivdash delete <id>'"}
	case migrate.CodePartialFailure:
		cause = fmt.Sprintf("%d of %d records could not be copied", result.Stats.FailedRecords, result.Stats.TotalRecords)
		suggestions = []string{CommonSuggestions.CheckStore}
	}

	var details []string
	for _, msg := range result.Messages {
		if msg.Level == migrate.LevelError {
			details = append(details, msg.Text)
		}
	}
	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     strings.Join(details, "\n"),
		Suggestions: suggestions,
	}
}
