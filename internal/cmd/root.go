package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"order-insights/internal/config"
	"order-insights/internal/observability"
	"order-insights/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// globalOptions carries the persistent flags shared by every subcommand.
type globalOptions struct {
	csvPath   string
	format    string
	cacheDir  string
	logLevel  string
	logFormat string
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "order-report",
		Short: "Print e-commerce order analytics from a CSV export",
		Long: `order-report loads an order CSV and prints one analytic view as JSON or YAML.

Views:
  overview      Dataset totals and date range
  revenue       Revenue statistics with volatility flags
  distribution  Order value histogram, CDF, quantiles and box plot
  discounts     Discounted versus full-price orders
  categories    Per-category revenue, shares and Pareto set
  returns       Return rates and alerts per category
  seasonal      Monthly, quarterly and seasonal breakdowns
  rfm           Customer RFM scores and segment counts
  segments      Customers of one RFM segment
  report        Every view in one document

Configuration comes from CONFIG_FILE and the environment; flags win.

Examples:
  order-report overview --csv orders.csv
  order-report segments --segment Champions --limit 20 --format yaml
  order-report report --csv orders.csv > report.json`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.format)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.csvPath, "csv", "", "Path to the order CSV (default: CSV_FILE or config)")
	flags.StringVarP(&opts.format, "format", "f", "json", "Output format (json|yaml)")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the parsed dataset cache, empty disables it (default: CACHE_DIR or config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level written to stderr: debug|info|warn|error (default: LOG_LEVEL or config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format written to stderr: json|text (default: LOG_FORMAT or config)")

	for _, view := range views() {
		rootCmd.AddCommand(newViewCmd(opts, view))
	}
	rootCmd.AddCommand(newSegmentsCmd(opts))

	return rootCmd
}

func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml", "yml":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}

// resolveConfig loads the environment configuration and lets explicitly set
// flags override it. Unset flags keep the configured values.
func resolveConfig(fs *pflag.FlagSet, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if fs.Changed("csv") {
		cfg.Dataset.CSVFile = opts.csvPath
	}
	if fs.Changed("cache-dir") {
		cfg.Dataset.CacheDir = opts.cacheDir
	}
	if fs.Changed("log-level") {
		cfg.Logger.Level = opts.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logger.Format = opts.logFormat
	}
	return cfg, nil
}

// openAnalytics builds the analytics service for one CLI invocation and loads
// the configured CSV.
func openAnalytics(cmd *cobra.Command, opts *globalOptions) (*services.Analytics, error) {
	cfg, err := resolveConfig(cmd.Flags(), opts)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Logger, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	analytics := services.NewAnalytics(
		services.NewLoader(cfg.Dataset.CacheDir, logger),
		services.Options{
			VolatilityThreshold:  cfg.Analytics.VolatilityThreshold,
			SeasonalityThreshold: cfg.Analytics.SeasonalityThreshold,
			ParetoTarget:         cfg.Analytics.ParetoTarget,
		},
		logger,
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Dataset.LoadTimeout)
	defer cancel()
	if err := analytics.LoadFromCSV(ctx, cfg.Dataset.CSVFile); err != nil {
		return nil, err
	}
	return analytics, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
