package cmd

import (
	"context"
	"fmt"

	"order-insights/internal/handlers"
	"order-insights/internal/seasonal"
	"order-insights/internal/services"

	"github.com/spf13/cobra"
)

// view is one printable analytic view.
type view struct {
	name    string
	short   string
	compute func(ctx context.Context, a *services.Analytics) (any, error)
}

func views() []view {
	return []view{
		{"overview", "Dataset totals, customer count and date range", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.Overview()
		}},
		{"revenue", "Revenue statistics and volatility flags", func(_ context.Context, a *services.Analytics) (any, error) {
			stats, err := a.Revenue()
			if err != nil {
				return nil, err
			}
			vol, err := a.Volatility()
			return handlers.RevenueResponse{Stats: stats, Volatility: vol}, err
		}},
		{"distribution", "Order value histogram, CDF, quantiles and box plot", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.Distribution()
		}},
		{"discounts", "Discounted versus full-price order comparison", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.Discounts()
		}},
		{"categories", "Per-category revenue, shares and Pareto set", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.Categories()
		}},
		{"returns", "Return rates and alerts per category", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.Returns()
		}},
		{"seasonal", "Monthly, quarterly and seasonal breakdowns", func(_ context.Context, a *services.Analytics) (any, error) {
			report, err := a.Seasonal()
			if err != nil {
				return nil, err
			}
			return handlers.SeasonalResponse{Report: report, Series: seasonal.MonthlySeries(report)}, nil
		}},
		{"rfm", "Customer RFM scores and segment counts", func(_ context.Context, a *services.Analytics) (any, error) {
			return a.RFM()
		}},
		{"report", "Every view in one document", func(ctx context.Context, a *services.Analytics) (any, error) {
			return a.Report(ctx)
		}},
	}
}

func newViewCmd(opts *globalOptions, v view) *cobra.Command {
	return &cobra.Command{
		Use:   v.name,
		Short: v.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analytics, err := openAnalytics(cmd, opts)
			if err != nil {
				return err
			}
			out, err := v.compute(cmd.Context(), analytics)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.format, out)
		},
	}
}

func newSegmentsCmd(opts *globalOptions) *cobra.Command {
	var (
		segment string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Customers of one RFM segment",
		Long: `List the RFM records of the customers in one segment, or of every
customer when --segment is omitted.

Segments: Champions, Loyal Customers, Potential Loyalists, At Risk,
Need Attention, Promising, Lost, Other.`,
		Example: `  order-report segments --segment "At Risk" --limit 50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0, got %d", limit)
			}
			analytics, err := openAnalytics(cmd, opts)
			if err != nil {
				return err
			}
			customers, err := analytics.Segments(segment, limit)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.format, handlers.SegmentsResponse{
				Segment:   segment,
				Count:     len(customers),
				Customers: customers,
			})
		},
	}

	cmd.Flags().StringVarP(&segment, "segment", "s", "", "Segment label to filter by")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum customers to print (0 prints all)")
	return cmd
}
