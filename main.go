package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketnav/internal/app"
	"marketnav/internal/config"
	"marketnav/internal/etl"
	_ "marketnav/internal/etl/sources"
	"marketnav/internal/logging"
)

var (
	configPath string
	verbose    bool
	limit      int
	mirror     bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "marketnav",
	Short: "Builds the integrated market-entry table",
	Long: `marketnav reads economic indicators, FDI figures from the World Bank API,
the logistics performance index and trade/NTM datasets, joins indicators with
FDI on (country_code, year), and writes the result to a relational store and
a CSV backup.

Run without a subcommand to execute the pipeline once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, transform and load once",
	RunE:  runPipeline,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Long: `Show recent runs from the run history file (output.run_log_path,
MARKETNAV_OUTPUT_RUN_LOG_PATH). An empty path disables history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			runs, err := a.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tSTAGE\tROWS\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Stage, r.RowsIntegrated, r.Error)
			}
			return w.Flush()
		})
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered source types",
	// Listing needs no pipeline configuration, so a broken config file
	// does not block it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(config.DefaultLogLevel, verbose)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(etl.ListSources())
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe the integrated table held by the store or the mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			inspect := a.InspectStore
			if mirror {
				inspect = a.InspectMirror
			}
			summary, err := inspect(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	inspectCmd.Flags().BoolVar(&mirror, "mirror", false, "inspect the MongoDB mirror instead of the store")

	rootCmd.AddCommand(runCmd, historyCmd, sourcesCmd, inspectCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		result, err := a.RunPipeline(ctx)
		if err != nil {
			return err
		}
		for _, d := range result.Datasets {
			line := fmt.Sprintf("%-15s %8d rows", d.Name, d.Rows)
			if d.Skipped > 0 {
				line += fmt.Sprintf(", %d skipped", d.Skipped)
			}
			if d.Degraded {
				line += " (degraded: " + d.Error + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "integrated %d rows in %s\n", result.RowsIntegrated, result.Duration.Round(time.Millisecond))
		return nil
	})
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a := app.New(cfg, logger)
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown(context.Background())
	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
