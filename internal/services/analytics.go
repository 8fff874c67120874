package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"order-insights/internal/category"
	apperrors "order-insights/internal/errors"
	"order-insights/internal/metrics"
	"order-insights/internal/models"
	"order-insights/internal/observability"
	"order-insights/internal/rfm"
	"order-insights/internal/seasonal"

	"golang.org/x/sync/errgroup"
)

// Options carries the thresholds that turn metrics into flags.
type Options struct {
	VolatilityThreshold  float64
	SeasonalityThreshold float64
	ParetoTarget         float64
}

func DefaultOptions() Options {
	return Options{
		VolatilityThreshold:  metrics.DefaultVolatilityPercent,
		SeasonalityThreshold: seasonal.DefaultSeasonalityPercent,
		ParetoTarget:         category.DefaultParetoTarget,
	}
}

// Analytics holds the current order table and derives every view from it on
// demand. Reloading swaps the table pointer; views never mutate it.
type Analytics struct {
	mu      sync.RWMutex
	data    *models.Dataset
	csvPath string
	loader  *Loader
	opts    Options
	logger  *slog.Logger

	reports atomic.Int64
	reloads atomic.Int64
}

func NewAnalytics(loader *Loader, opts Options, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = NewLoader("", logger)
	}
	return &Analytics{
		loader: loader,
		opts:   opts,
		logger: logger,
	}
}

// SetData installs an in-memory order table. Calendar fields are derived here
// so callers only need to fill the raw columns.
func (a *Analytics) SetData(orders []models.Order) {
	enriched := make([]models.Order, len(orders))
	copy(enriched, orders)
	for i := range enriched {
		enriched[i].Enrich()
	}
	a.SetDataset(&models.Dataset{
		Orders:   enriched,
		Source:   "memory",
		LoadedAt: time.Now(),
	})
}

func (a *Analytics) SetDataset(ds *models.Dataset) {
	a.mu.Lock()
	a.data = ds
	a.mu.Unlock()
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	ds, err := a.loader.Load(ctx, filename)
	if err != nil {
		return fmt.Errorf("load %s: %w", filename, err)
	}

	a.mu.Lock()
	a.csvPath = filename
	a.data = ds
	a.mu.Unlock()

	a.logger.Info("dataset ready",
		"path", filename,
		"orders", ds.Len(),
		"filled_discounts", ds.FilledDiscounts)
	return nil
}

// Reload drops the loader's cache entry for the current file and loads it
// again. The previous table stays in place if the reload fails.
func (a *Analytics) Reload(ctx context.Context) error {
	a.mu.RLock()
	path := a.csvPath
	a.mu.RUnlock()

	if path == "" {
		return apperrors.BadRequest("no CSV file has been loaded")
	}

	a.loader.Invalidate(path)
	if err := a.LoadFromCSV(ctx, path); err != nil {
		return err
	}
	a.reloads.Add(1)
	return nil
}

func (a *Analytics) Options() Options {
	return a.opts
}

func (a *Analytics) dataset() (*models.Dataset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.data.Len() == 0 {
		return nil, apperrors.ServiceUnavailable("no order data loaded")
	}
	return a.data, nil
}

func (a *Analytics) Overview() (models.Overview, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.Overview{}, err
	}
	return metrics.Overview(ds), nil
}

func (a *Analytics) Revenue() (models.RevenueStats, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.RevenueStats{}, err
	}
	return metrics.Revenue(ds.Orders), nil
}

func (a *Analytics) Volatility() (models.Volatility, error) {
	rs, err := a.Revenue()
	if err != nil {
		return models.Volatility{}, err
	}
	return metrics.Volatility(rs, a.opts.VolatilityThreshold), nil
}

func (a *Analytics) Distribution() (models.Distribution, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.Distribution{}, err
	}
	return metrics.Distribution(ds.Orders), nil
}

func (a *Analytics) Discounts() (models.DiscountImpact, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.DiscountImpact{}, err
	}
	return metrics.Discounts(ds.Orders), nil
}

func (a *Analytics) Categories() (models.CategoryReport, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.CategoryReport{}, err
	}
	return category.Analyze(ds.Orders, a.opts.ParetoTarget), nil
}

func (a *Analytics) Returns() (models.ReturnsReport, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.ReturnsReport{}, err
	}
	return category.Returns(ds.Orders), nil
}

func (a *Analytics) Seasonal() (models.SeasonalReport, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.SeasonalReport{}, err
	}
	return seasonal.Analyze(ds.Orders, a.opts.SeasonalityThreshold), nil
}

func (a *Analytics) RFM() (models.RFMReport, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.RFMReport{}, err
	}
	return rfm.Compute(ds.Orders), nil
}

// Segments returns the customers of one segment, or all of them when segment
// is empty. Unknown segment names are a validation error.
func (a *Analytics) Segments(segment string, limit int) ([]models.CustomerRFM, error) {
	if segment != "" && !slices.Contains(rfm.Segments(), segment) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown segment %q", segment))
	}
	report, err := a.RFM()
	if err != nil {
		return nil, err
	}

	out := make([]models.CustomerRFM, 0, len(report.Customers))
	for _, c := range report.Customers {
		if segment == "" || c.Segment == segment {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Report computes every view. Analyzers are independent so they run
// concurrently over the shared read-only table.
func (a *Analytics) Report(ctx context.Context) (report *models.Report, err error) {
	ctx, span := observability.StartSpan(ctx, "report.build")
	defer func() { span.End(observability.Logger(ctx, a.logger), err) }()

	ds, err := a.dataset()
	if err != nil {
		return nil, err
	}
	span.SetTag("orders", fmt.Sprint(ds.Len()))

	r := &models.Report{Overview: metrics.Overview(ds)}

	g, gctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	run(func() {
		r.Revenue = metrics.Revenue(ds.Orders)
		r.Volatility = metrics.Volatility(r.Revenue, a.opts.VolatilityThreshold)
	})
	run(func() { r.Distribution = metrics.Distribution(ds.Orders) })
	run(func() { r.Discounts = metrics.Discounts(ds.Orders) })
	run(func() { r.Categories = category.Analyze(ds.Orders, a.opts.ParetoTarget) })
	run(func() { r.Returns = category.Returns(ds.Orders) })
	run(func() { r.Seasonal = seasonal.Analyze(ds.Orders, a.opts.SeasonalityThreshold) })
	run(func() { r.RFM = rfm.Compute(ds.Orders) })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.GeneratedAt = time.Now().UTC()
	a.reports.Add(1)
	return r, nil
}

// Stats is the monitoring snapshot for /admin/stats.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	ds := a.data
	path := a.csvPath
	a.mu.RUnlock()

	stats := map[string]any{
		"record_count":     ds.Len(),
		"csv_path":         path,
		"reports_built":    a.reports.Load(),
		"reloads":          a.reloads.Load(),
		"loader":           a.loader.Stats(),
		"pareto_target":    a.opts.ParetoTarget,
		"volatility_limit": a.opts.VolatilityThreshold,
	}
	if ds != nil {
		stats["last_processed"] = ds.LoadedAt
		stats["file_modified"] = ds.ModTime
		stats["filled_discounts"] = ds.FilledDiscounts
	}
	return stats
}
