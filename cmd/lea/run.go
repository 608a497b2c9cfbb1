package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/carbonfact/lea-sub000/internal/config"
	"github.com/carbonfact/lea-sub000/internal/dag"
	"github.com/carbonfact/lea-sub000/internal/database"
	"github.com/carbonfact/lea-sub000/internal/eventlog"
	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/session"
)

type runFlags struct {
	selector         string
	scriptsDir       string
	incrementalField string
	incremental      []string
	dry              bool
	earlyEnd         bool
	fresh            bool
	maxConcurrency   int
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize the selected scripts into the configured dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.selector, "select", "m", "*", "selector expression restricting which scripts run")
	cmd.Flags().StringVar(&flags.scriptsDir, "scripts", "scripts", "directory of .sql / .sql.jinja scripts")
	cmd.Flags().StringVar(&flags.incrementalField, "incremental-field", "date", "field name an incremental run filters on")
	cmd.Flags().StringSliceVar(&flags.incremental, "incremental", nil, "values to scope an incremental run to")
	cmd.Flags().BoolVar(&flags.dry, "dry", false, "print the scheduling plan without running anything")
	cmd.Flags().BoolVar(&flags.earlyEnd, "early-end", false, "stop the whole run as soon as any script fails, instead of letting independent branches finish")
	cmd.Flags().BoolVar(&flags.fresh, "fresh", false, "skip the confirmation prompt before running against the warehouse")
	cmd.Flags().IntVar(&flags.maxConcurrency, "max-concurrency", 0, "override the configured worker pool size")
	return cmd
}

func runRun(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.FromEnviron()
	if err != nil {
		return err
	}
	if flags.maxConcurrency > 0 {
		cfg.MaxConcurrency = flags.maxConcurrency
	}

	dialect, err := dialectFor(cfg)
	if err != nil {
		return err
	}

	scripts, err := script.LoadDirectory(flags.scriptsDir, dialect, cfg.Dataset)
	if err != nil {
		return fmt.Errorf("loading scripts: %w", err)
	}
	for _, s := range scripts {
		scripts = append(scripts, script.AssertionTests(s)...)
	}

	graph, err := dag.New(scripts)
	if err != nil {
		return err
	}
	if err := graph.Select(flags.selector); err != nil {
		return err
	}

	if flags.dry {
		for _, s := range graph.Scripts() {
			fmt.Fprintf(cmd.OutOrStdout(), "%# v\n", pretty.Formatter(s.TableRef))
		}
		return nil
	}

	if !flags.fresh {
		if err := confirmRun(graph.Len()); err != nil {
			return err
		}
	}

	connString := os.Getenv("LEA_DATABASE_URL")
	client, err := database.NewPostgresClient(ctx, connString)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	incrementalField := flags.incrementalField
	if len(flags.incremental) == 0 {
		incrementalField = ""
	}

	sess := session.New(graph, client, session.Options{
		WriteDataset:      cfg.Dataset,
		MaxConcurrency:    int64(cfg.MaxConcurrency),
		IncrementalField:  incrementalField,
		IncrementalValues: flags.incremental,
		EarlyEnd:          flags.earlyEnd,
		Sink:              eventlog.NewLogfmtSink(cmd.OutOrStdout()),
	})

	if err := sess.Run(ctx); err != nil {
		_ = sess.End(ctx)
		return err
	}
	return sess.End(ctx)
}

func dialectFor(cfg config.Config) (script.SQLDialect, error) {
	switch cfg.Dialect {
	case "bigquery":
		return script.NewBigQueryDialect(cfg.Project), nil
	case "duckdb":
		return script.NewDuckDBDialect(cfg.Dataset), nil
	default:
		return nil, fmt.Errorf("run: unknown LEA_DIALECT %q (want \"bigquery\" or \"duckdb\")", cfg.Dialect)
	}
}

func confirmRun(nScripts int) error {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Run %d scripts against the warehouse", nScripts),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return fmt.Errorf("run: aborted: %w", err)
	}
	return nil
}
