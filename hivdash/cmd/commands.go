package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/hivdash/hivdash/charts"
	"github.com/arthur-debert/hivdash/hivdash/entry"
	"github.com/arthur-debert/hivdash/hivdash/export"
	"github.com/arthur-debert/hivdash/hivdash/geo"
	imports "github.com/arthur-debert/hivdash/hivdash/import"
	"github.com/arthur-debert/hivdash/hivdash/server"
	"github.com/arthur-debert/hivdash/hivdash/table"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func (cli *CLI) quiet() bool {
	return cli.viperInst.GetBool("quiet")
}

func (cli *CLI) loadWorld(operation string) (*geo.World, error) {
	path := cli.viperInst.GetString("world")
	world, err := geo.Load(path)
	if err != nil {
		return nil, NewConfigError(operation, fmt.Sprintf("cannot load world shapes %q", path), err)
	}
	return world, nil
}

func (cli *CLI) addServeCommand() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the records API, dashboard views and charts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := cli.loadWorld("serve")
			if err != nil {
				return err
			}
			s, err := cli.openStore("serve")
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			srv, err := server.New(s, world, cli.logger())
			if err != nil {
				return WrapError("serve", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := cli.viperInst.GetString("addr")
			if !cli.quiet() {
				fmt.Fprintf(cli.errOut, "Serving %s on %s\n", cli.viperInst.GetString("store"), addr)
			}
			return WrapError("serve", srv.Run(ctx, addr))
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	_ = cli.viperInst.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	cli.rootCmd.AddCommand(cmd)
}

func addRecordFlags(cmd *cobra.Command) {
	for _, c := range table.Columns {
		cmd.Flags().String(string(c), "", fmt.Sprintf("Record %s", c))
	}
}

func (cli *CLI) addAddCommand() {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one record",
		Long: `Add one record. Every field is required; deaths and incidence that are
not numbers are stored as missing values.

Example:
  hivdash add --entity Chile --code CL --year 2001 --deaths 12 --incidence 340`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := entry.Form{}
			form.Entity, _ = cmd.Flags().GetString(string(table.ColEntity))
			form.Code, _ = cmd.Flags().GetString(string(table.ColCode))
			form.Year, _ = cmd.Flags().GetString(string(table.ColYear))
			form.Deaths, _ = cmd.Flags().GetString(string(table.ColDeaths))
			form.Incidence, _ = cmd.Flags().GetString(string(table.ColIncidence))

			return cli.withStore(cmd, "add record", func(ctx context.Context, s types.Store) error {
				id, err := form.Submit(ctx, s, cli.logger())
				if err != nil {
					return err
				}
				rec, err := s.Get(ctx, id)
				if err != nil {
					return err
				}
				cli.logOperation("add", "id", id, "entity", rec.Entity, "year", rec.Year)
				return cli.formatter().Records(cli.out, []types.Record{rec})
			})
		},
	}
	addRecordFlags(cmd)
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addGetCommand() {
	cli.rootCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withStore(cmd, "get record", func(ctx context.Context, s types.Store) error {
				rec, err := s.Get(ctx, args[0])
				if errors.Is(err, types.ErrNotFound) {
					return NewNotFoundError("get record", args[0], err)
				}
				if err != nil {
					return err
				}
				return cli.formatter().Records(cli.out, []types.Record{rec})
			})
		},
	})
}

func (cli *CLI) addListCommand() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, optionally searched and sorted",
		Long: `List records in insertion order. --search keeps rows whose entity, code,
year, deaths or incidence contains the text (case-insensitive); --sort orders
by one column.

Example:
  hivdash list --search usa --sort year --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			sortBy, _ := cmd.Flags().GetString("sort")
			desc, _ := cmd.Flags().GetBool("desc")

			var sortState *table.SortState
			if sortBy != "" {
				col, err := table.ParseColumn(sortBy)
				if err != nil {
					return NewValidationError("list records", "sort column", sortBy,
						"Use one of: entity, code, year, deaths, incidence")
				}
				sortState = &table.SortState{Column: col, Direction: table.Ascending}
				if desc {
					sortState.Direction = table.Descending
				}
			}

			return cli.withStore(cmd, "list records", func(ctx context.Context, s types.Store) error {
				t := table.New(s, cli.logger())
				if err := t.Load(ctx); err != nil {
					return err
				}
				t.SetSearch(search)
				if sortState != nil {
					if err := t.SetSort(*sortState); err != nil {
						return err
					}
				}
				return cli.formatter().Records(cli.out, t.Rows())
			})
		},
	}
	cmd.Flags().String("search", "", "Only rows containing this text")
	cmd.Flags().String("sort", "", "Sort column (entity|code|year|deaths|incidence)")
	cmd.Flags().Bool("desc", false, "Sort descending")
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addUpdateCommand() {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of one record",
		Long: `Change the given fields of one record; fields not passed keep their value.

Example:
  hivdash update 6f1c... --deaths 40 --incidence 120`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var changed []table.Column
			for _, c := range table.Columns {
				if cmd.Flags().Changed(string(c)) {
					changed = append(changed, c)
				}
			}
			if len(changed) == 0 {
				return &CLIError{
					Operation:   "update record",
					Cause:       "no fields to change",
					Suggestions: []string{"Pass at least one of --entity, --code, --year, --deaths, --incidence"},
				}
			}

			return cli.withStore(cmd, "update record", func(ctx context.Context, s types.Store) error {
				t := table.New(s, cli.logger())
				if err := t.Load(ctx); err != nil {
					return err
				}
				if _, err := t.BeginEdit(id); err != nil {
					if errors.Is(err, table.ErrRowNotFound) {
						return NewNotFoundError("update record", id, err)
					}
					return err
				}
				for _, c := range changed {
					value, _ := cmd.Flags().GetString(string(c))
					if err := t.SetField(c, value); err != nil {
						return err
					}
				}
				rec, err := t.Save(ctx)
				if err != nil {
					return err
				}
				cli.logOperation("update", "id", id, "fields", changed)
				return cli.formatter().Records(cli.out, []types.Record{rec})
			})
		},
	}
	addRecordFlags(cmd)
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addDeleteCommand() {
	cli.rootCmd.AddCommand(&cobra.Command{
		Use:   "delete <id> [id...]",
		Short: "Delete records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withStore(cmd, "delete record", func(ctx context.Context, s types.Store) error {
				t := table.New(s, cli.logger())
				for _, id := range args {
					if err := t.Delete(ctx, id); err != nil {
						if errors.Is(err, types.ErrNotFound) {
							return NewNotFoundError("delete record", id, err)
						}
						return err
					}
					cli.logOperation("delete", "id", id)
					if !cli.quiet() {
						fmt.Fprintf(cli.out, "Deleted %s\n", id)
					}
				}
				return nil
			})
		},
	})
}

func (cli *CLI) addImportCommand() {
	cmd := &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Import records from a CSV file",
		Long: `Import records from a CSV file with the header
Entity,Code,Year,Deaths,Incidence[,Prevalence]. Rows missing a required field
are skipped; a row the store rejects is reported and the import continues.
Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return &CLIError{
						Operation:  "import",
						Cause:      "cannot open CSV file",
						Details:    err.Error(),
						Underlying: err,
					}
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			return cli.withStore(cmd, "import", func(ctx context.Context, s types.Store) error {
				opts := imports.Options{DryRun: dryRun, Logger: cli.logger()}
				if !cli.quiet() {
					opts.OnProgress = func(p imports.Progress) {
						fmt.Fprintf(cli.errOut, "\rImporting... %d%%", p.Percent)
					}
				}

				result, err := imports.Import(ctx, s, in, opts)
				if opts.OnProgress != nil {
					fmt.Fprintln(cli.errOut)
				}
				if err != nil {
					return err
				}

				summary := result.Summary()
				cli.logOperation("import", "file", args[0], "dry_run", dryRun,
					"imported", summary.Imported, "skipped", summary.Skipped, "failed", summary.Failed)
				return cli.printImportResult(result)
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "Validate rows without creating records")
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) printImportResult(result *imports.Result) error {
	of := cli.formatter()
	if of.format != "table" {
		return of.Value(cli.out, result)
	}

	prefix := ""
	if result.DryRun {
		prefix = "[dry-run] "
	}
	fmt.Fprintf(cli.out, "%s%s\n", prefix, result.Summary())
	for _, s := range result.Skipped {
		fmt.Fprintf(cli.out, "  row %d skipped: missing %s\n", s.Row, strings.Join(s.Missing, ", "))
	}
	for _, f := range result.Failed {
		fmt.Fprintf(cli.out, "  row %d (%s) failed: %s\n", f.Row, f.Entity, f.Error)
	}
	return nil
}

// exportFormat picks the export format: the file extension wins, then
// --format when it names a file format, then CSV.
func (cli *CLI) exportFormat(path string) (export.Format, error) {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" && path != "-" {
		return export.ParseFormat(ext)
	}
	if f, err := export.ParseFormat(cli.viperInst.GetString("format")); err == nil {
		return f, nil
	}
	return export.CSV, nil
}

func (cli *CLI) addExportCommand() {
	cli.rootCmd.AddCommand(&cobra.Command{
		Use:   "export [file|-]",
		Short: "Export every record to CSV, JSON or YAML",
		Long: `Export every record. Without a file name the export is written to
hivdash-export-<timestamp>.<ext> in the current directory; - writes to
standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			format, err := cli.exportFormat(path)
			if err != nil {
				return NewValidationError("export", "file format", path, "Use a .csv, .json or .yaml file name")
			}
			if path == "" {
				path = export.Filename(format, time.Now())
			}

			return cli.withStore(cmd, "export", func(ctx context.Context, s types.Store) error {
				w := cli.out
				if path != "-" {
					f, err := os.Create(path)
					if err != nil {
						return err
					}
					defer func() { _ = f.Close() }()
					w = f
				}

				summary, err := export.Export(ctx, s, w, format)
				if err != nil {
					return err
				}
				cli.logOperation("export", "file", path, "format", format,
					"records", summary.Records, "unimportable", summary.Unimportable)
				if path != "-" && !cli.quiet() {
					fmt.Fprintf(cli.errOut, "Exported %d records to %s\n", summary.Records, path)
				}
				if summary.Unimportable > 0 {
					cli.logger().Warn("exported rows will not import again",
						"file", path, "rows", summary.Unimportable)
					fmt.Fprintf(cli.errOut, "WARN: %d of %d rows have an empty column (usually Prevalence) and will be skipped if this file is imported\n",
						summary.Unimportable, summary.Records)
				}
				return nil
			})
		},
	})
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().String("order", "", "Year order for comparison views (insertion|numeric)")
	cmd.Flags().String("metric", "", "Metric (incidence|deaths)")
	cmd.Flags().String("year", "", "Year for composition and word cloud (All for every year)")
	cmd.Flags().String("search", "", "Entity filter for the composition view")
	cmd.Flags().Bool("merge", false, "Merge word cloud entries of the same entity")
}

func viewParams(cmd *cobra.Command) (server.ViewParams, error) {
	q := url.Values{}
	for flag, key := range map[string]string{"order": "order", "metric": "metric", "year": "year", "search": "q"} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			q.Set(key, v)
		}
	}
	if cmd.Flags().Changed("merge") {
		merge, _ := cmd.Flags().GetBool("merge")
		q.Set("merge", strconv.FormatBool(merge))
	}
	return server.ParseParams(q)
}

func (cli *CLI) addViewCommand() {
	cmd := &cobra.Command{
		Use:   "view <name>",
		Short: "Compute one dashboard view",
		Long: fmt.Sprintf(`Compute one dashboard view and print it as JSON or YAML.

Views: %s`, strings.Join(server.ViewNames, ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := viewParams(cmd)
			if err != nil {
				return NewValidationError("compute view", "view option", err.Error(), CommonSuggestions.RunHelp)
			}
			world, err := cli.loadWorld("compute view")
			if err != nil {
				return err
			}

			return cli.withStore(cmd, "compute view", func(ctx context.Context, s types.Store) error {
				records, err := s.ListAll(ctx)
				if err != nil {
					return err
				}
				view, err := server.BuildView(args[0], records, world, params)
				if err != nil {
					return NewValidationError("compute view", "view", args[0],
						"Use one of: "+strings.Join(server.ViewNames, ", "))
				}
				return cli.formatter().Value(cli.out, view)
			})
		},
	}
	addViewFlags(cmd)
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) addChartCommand() {
	cmd := &cobra.Command{
		Use:   "chart <name> <file.png|file.svg>",
		Short: "Render a dashboard chart to a PNG or SVG file",
		Long: fmt.Sprintf(`Render a dashboard chart. The file extension picks the image format.

Charts: %s`, strings.Join(server.ChartNames, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			if !slices.Contains(server.ChartNames, name) {
				return NewValidationError("render chart", "chart", name, "Use one of: "+strings.Join(server.ChartNames, ", "))
			}
			format, err := charts.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
			if err != nil {
				return NewValidationError("render chart", "image file", path, "Use a .png or .svg file name")
			}
			params, err := viewParams(cmd)
			if err != nil {
				return NewValidationError("render chart", "chart option", err.Error(), CommonSuggestions.RunHelp)
			}
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")

			return cli.withStore(cmd, "render chart", func(ctx context.Context, s types.Store) error {
				records, err := s.ListAll(ctx)
				if err != nil {
					return err
				}

				f, err := os.Create(path)
				if err != nil {
					return err
				}
				err = server.RenderChart(f, name, records, params, format, charts.Size{Width: width, Height: height})
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					_ = os.Remove(path)
					return err
				}
				if !cli.quiet() {
					fmt.Fprintf(cli.errOut, "Wrote %s\n", path)
				}
				return nil
			})
		},
	}
	addViewFlags(cmd)
	cmd.Flags().Int("width", 0, "Image width in pixels (default 1024)")
	cmd.Flags().Int("height", 0, "Image height in pixels (default 512)")
	cli.rootCmd.AddCommand(cmd)
}
