package services

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "order-insights/internal/errors"
	"order-insights/internal/models"
	"order-insights/internal/observability"

	"golang.org/x/sync/errgroup"
)

const (
	batchSize    = 5000
	maxWorkers   = 8
	cacheVersion = "orders-v1"
)

// Required header columns. Order in the file is free.
const (
	colOrderID  = "order_id"
	colCustomer = "customer_id"
	colDate     = "order_date"
	colValue    = "order_value"
	colDiscount = "discount_applied"
	colCategory = "product_category"
	colStatus   = "order_status"
)

var requiredColumns = []string{colOrderID, colCustomer, colDate, colValue, colDiscount, colCategory, colStatus}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006/01/02",
}

// UnknownCategory replaces a blank product_category.
const UnknownCategory = "Unknown"

// Loader parses order CSV files into datasets and memoizes them per path.
// An entry is reused while the file's modification time and size are
// unchanged.
type Loader struct {
	mu       sync.Mutex
	memo     map[string]*models.Dataset
	cacheDir string
	logger   *slog.Logger

	parses    atomic.Int64
	memoHits  atomic.Int64
	diskHits  atomic.Int64
	rowsTotal atomic.Int64
}

// LoaderStats is the monitoring snapshot exposed on /admin/stats.
type LoaderStats struct {
	Entries   int   `json:"entries"`
	Parses    int64 `json:"parses"`
	MemoHits  int64 `json:"memo_hits"`
	DiskHits  int64 `json:"disk_hits"`
	RowsTotal int64 `json:"rows_parsed"`
}

// NewLoader returns a loader. An empty cacheDir disables the gob disk cache.
func NewLoader(cacheDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		memo:     make(map[string]*models.Dataset),
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// Load returns the dataset for path, parsing the file only when no valid
// memo or disk cache entry exists. Malformed input yields a DATA_ERROR
// AppError and nothing is cached.
func (l *Loader) Load(ctx context.Context, path string) (ds *models.Dataset, err error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	span.SetTag("path", path)
	defer func() { span.End(observability.Logger(ctx, l.logger), err) }()

	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	info, err := os.Stat(key)
	if err != nil {
		return nil, apperrors.DataWrap(err, fmt.Sprintf("dataset %s is not readable", path))
	}
	if info.IsDir() {
		return nil, apperrors.Data(fmt.Sprintf("dataset %s is a directory", path))
	}

	if cached := l.lookup(key, info); cached != nil {
		l.memoHits.Add(1)
		span.SetTag("source", "memo")
		return cached, nil
	}

	if cached, err := l.loadFromDisk(key, info); err == nil {
		l.diskHits.Add(1)
		l.store(key, cached)
		span.SetTag("source", "disk")
		l.logger.Info("dataset loaded from cache", "path", path, "orders", cached.Len())
		return cached, nil
	}

	start := time.Now()
	l.logger.Info("processing CSV file", "path", path)

	f, err := os.Open(key)
	if err != nil {
		return nil, apperrors.DataWrap(err, fmt.Sprintf("open dataset %s", path))
	}
	defer f.Close()

	orders, filled, err := l.parse(ctx, f)
	if err != nil {
		return nil, err
	}

	ds = &models.Dataset{
		Orders:          orders,
		Source:          key,
		ModTime:         info.ModTime(),
		Size:            info.Size(),
		LoadedAt:        time.Now(),
		FilledDiscounts: filled,
	}

	l.parses.Add(1)
	l.rowsTotal.Add(int64(len(orders)))
	l.store(key, ds)
	span.SetTag("source", "csv")

	if err := l.saveToDisk(key, ds); err != nil {
		l.logger.Warn("failed to save cache", "path", path, "error", err)
	}

	duration := time.Since(start)
	l.logger.Info("csv processing complete",
		"path", path,
		"orders", len(orders),
		"filled_discounts", filled,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(orders))/duration.Seconds()))

	return ds, nil
}

// Invalidate drops the memo and disk cache entries for path.
func (l *Loader) Invalidate(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	l.mu.Lock()
	delete(l.memo, key)
	l.mu.Unlock()

	if l.cacheDir != "" {
		_ = os.Remove(l.cacheFilename(key))
	}
}

// InvalidateAll empties the memo. Disk entries are left to be revalidated
// against the file on the next load.
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	clear(l.memo)
	l.mu.Unlock()
}

func (l *Loader) Stats() LoaderStats {
	l.mu.Lock()
	entries := len(l.memo)
	l.mu.Unlock()
	return LoaderStats{
		Entries:   entries,
		Parses:    l.parses.Load(),
		MemoHits:  l.memoHits.Load(),
		DiskHits:  l.diskHits.Load(),
		RowsTotal: l.rowsTotal.Load(),
	}
}

func (l *Loader) lookup(key string, info os.FileInfo) *models.Dataset {
	l.mu.Lock()
	defer l.mu.Unlock()
	ds, ok := l.memo[key]
	if !ok || !ds.ModTime.Equal(info.ModTime()) || ds.Size != info.Size() {
		return nil
	}
	return ds
}

func (l *Loader) store(key string, ds *models.Dataset) {
	l.mu.Lock()
	l.memo[key] = ds
	l.mu.Unlock()
}

type rawRow struct {
	line   int
	record []string
}

// parse reads the whole file, then converts rows in batches on a bounded
// worker group. Each batch writes its own slot so file order is preserved.
func (l *Loader) parse(ctx context.Context, r io.Reader) ([]models.Order, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, 0, apperrors.Data("dataset is empty")
	}
	if err != nil {
		return nil, 0, apperrors.DataWrap(err, "malformed CSV header")
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var batches [][]rawRow
	batch := make([]rawRow, 0, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, apperrors.DataWrap(err, "malformed CSV")
		}
		line, _ := reader.FieldPos(0)
		batch = append(batch, rawRow{line: line, record: record})
		if len(batch) == batchSize {
			batches = append(batches, batch)
			batch = make([]rawRow, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	if len(batches) == 0 {
		return nil, 0, apperrors.Data("dataset has no order rows")
	}

	parsed := make([][]models.Order, len(batches))
	filled := make([]int, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, rows := range batches {
		g.Go(func() error {
			out := make([]models.Order, 0, len(rows))
			for _, row := range rows {
				if err := gctx.Err(); err != nil {
					return err
				}
				o, wasFilled, err := parseOrder(row.record, cols)
				if err != nil {
					return apperrors.DataAt(row.line, err)
				}
				if wasFilled {
					filled[i]++
				}
				out = append(out, o)
			}
			parsed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total, filledTotal := 0, 0
	for i := range parsed {
		total += len(parsed[i])
		filledTotal += filled[i]
	}
	orders := make([]models.Order, 0, total)
	for _, p := range parsed {
		orders = append(orders, p...)
	}
	return orders, filledTotal, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Data("missing required column(s): " + strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseOrder(record []string, cols map[string]int) (models.Order, bool, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[cols[name]])
	}

	o := models.Order{
		OrderID:         field(colOrderID),
		CustomerID:      field(colCustomer),
		ProductCategory: field(colCategory),
		RawStatus:       field(colStatus),
	}
	if o.CustomerID == "" {
		return o, false, fmt.Errorf("customer_id is empty")
	}
	if o.ProductCategory == "" {
		o.ProductCategory = UnknownCategory
	}
	o.Status = models.ParseOrderStatus(o.RawStatus)

	date, err := parseDate(field(colDate))
	if err != nil {
		return o, false, err
	}
	o.OrderDate = date

	value, err := strconv.ParseFloat(field(colValue), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return o, false, fmt.Errorf("order_value %q is not a number", field(colValue))
	}
	if value < 0 {
		return o, false, fmt.Errorf("order_value %g is negative", value)
	}
	o.OrderValue = value

	discount, filled, err := parseDiscount(field(colDiscount))
	if err != nil {
		return o, false, err
	}
	o.DiscountApplied = discount

	o.Enrich()
	return o, filled, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("order_date %q is not a recognised date", raw)
}

// parseDiscount treats blank, NaN and null as zero and reports the fill.
func parseDiscount(raw string) (float64, bool, error) {
	switch strings.ToLower(raw) {
	case "", "nan", "null", "none", "na":
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("discount_applied %q is not a number", raw)
	}
	return v, false, nil
}

// Disk cache

type diskEntry struct {
	Version         string
	Source          string
	ModTime         time.Time
	Size            int64
	FilledDiscounts int
	Orders          []models.Order
}

func (l *Loader) cacheFilename(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(l.cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (l *Loader) saveToDisk(key string, ds *models.Dataset) error {
	if l.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return err
	}

	target := l.cacheFilename(key)
	tmp, err := os.CreateTemp(l.cacheDir, "orders-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	entry := diskEntry{
		Version:         cacheVersion,
		Source:          ds.Source,
		ModTime:         ds.ModTime,
		Size:            ds.Size,
		FilledDiscounts: ds.FilledDiscounts,
		Orders:          ds.Orders,
	}
	if err := gob.NewEncoder(tmp).Encode(entry); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

var errStaleCache = stderrors.New("stale cache entry")

func (l *Loader) loadFromDisk(key string, info os.FileInfo) (*models.Dataset, error) {
	if l.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(l.cacheFilename(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry diskEntry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, err
	}
	if entry.Version != cacheVersion || !entry.ModTime.Equal(info.ModTime()) || entry.Size != info.Size() || len(entry.Orders) == 0 {
		return nil, errStaleCache
	}

	return &models.Dataset{
		Orders:          entry.Orders,
		Source:          key,
		ModTime:         entry.ModTime,
		Size:            entry.Size,
		LoadedAt:        time.Now(),
		FilledDiscounts: entry.FilledDiscounts,
	}, nil
}
