package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"order-insights/internal/models"
	"order-insights/internal/observability"
	"order-insights/internal/seasonal"
	"order-insights/internal/services"

	"github.com/starfederation/datastar-go/datastar"
)

const maxTableRows = 50

var fragmentFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"nmoney": func(n models.NullFloat) string {
		if !n.Valid {
			return "n/a"
		}
		return fmt.Sprintf("$%.2f", n.Value)
	},
	"num": func(n models.NullFloat) string {
		if !n.Valid {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", n.Value)
	},
	"npct": func(n models.NullFloat) string {
		if !n.Valid {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%%", n.Value)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "n/a"
		}
		return t.Format("2006-01-02")
	},
}

var overviewTemplate = template.Must(template.New("overview").Funcs(fragmentFuncs).Parse(`
<div id="overview-content" class="kpi-grid">
<div class="kpi"><span class="kpi-label">Orders</span><span class="kpi-value">{{.Overview.TotalOrders}}</span></div>
<div class="kpi"><span class="kpi-label">Revenue</span><span class="kpi-value">{{money .Overview.TotalRevenue}}</span></div>
<div class="kpi"><span class="kpi-label">Customers</span><span class="kpi-value">{{.Overview.UniqueCustomers}}</span></div>
<div class="kpi"><span class="kpi-label">Avg order value</span><span class="kpi-value">{{num .AOV}}</span></div>
<div class="kpi"><span class="kpi-label">Date range</span><span class="kpi-value">{{date .Overview.FirstOrder}} to {{date .Overview.LastOrder}}</span></div>
<div class="kpi"><span class="kpi-label">Filled discounts</span><span class="kpi-value">{{.Overview.FilledDiscounts}}</span></div>
</div>`))

var revenueTemplate = template.Must(template.New("revenue").Funcs(fragmentFuncs).Parse(`
<div id="revenue-content">
<table class="modern-table">
<thead><tr><th>Mean</th><th>Median</th><th>Std dev</th><th>Min</th><th>Q1</th><th>Q3</th><th>Max</th><th>IQR</th></tr></thead>
<tbody><tr>
<td>{{num .Stats.Mean}}</td><td>{{num .Stats.Median}}</td><td>{{num .Stats.StdDev}}</td>
<td>{{num .Stats.Min}}</td><td>{{num .Stats.Q1}}</td><td>{{num .Stats.Q3}}</td><td>{{num .Stats.Max}}</td><td>{{num .Stats.IQR}}</td>
</tr></tbody>
</table>
<div class="insight{{if .Volatility.HighVolatility}} warning{{end}}">
Coefficient of variation {{npct .Volatility.CoefficientOfVariation}}, best case {{num .Volatility.BestCase}}, worst case {{num .Volatility.WorstCase}}{{if .Volatility.HighVolatility}} (high volatility){{end}}
</div>
{{with .Distribution.BoxPlot}}<div class="boxplot">Whiskers {{printf "%.2f" .LowerWhisker}} to {{printf "%.2f" .UpperWhisker}}, {{.Outliers}} outlier(s)</div>{{end}}
<table class="modern-table">
<thead><tr><th>Discount</th><th>Orders</th><th>Revenue</th><th>Mean</th></tr></thead>
<tbody>
<tr><td>None</td><td>{{.Discounts.NoDiscount.Orders}}</td><td>{{nmoney .Discounts.NoDiscount.Revenue}}</td><td>{{num .Discounts.NoDiscount.Mean}}</td></tr>
<tr><td>Applied</td><td>{{.Discounts.WithDiscount.Orders}}</td><td>{{nmoney .Discounts.WithDiscount.Revenue}}</td><td>{{num .Discounts.WithDiscount.Mean}}</td></tr>
</tbody>
</table>
<div class="insight">Difference {{npct .Discounts.PercentDifference}}{{if .Discounts.DiscountsLowerAOV}}: discounted orders have a lower average value{{end}}</div>
</div>`))

var segmentsTemplate = template.Must(template.New("segments").Funcs(fragmentFuncs).Parse(`
<div id="segments-content">
<table class="modern-table">
<thead><tr><th>Segment</th><th>Customers</th><th>Share</th></tr></thead>
<tbody>
{{range .Segments}}<tr>
<td><span class="category-badge">{{.Segment}}</span></td>
<td>{{.Customers}}</td>
<td>{{pct .Share}}</td>
</tr>{{end}}
</tbody>
</table>
<div class="insight">{{.Summary.Customers}} customers, reference date {{date .Summary.ReferenceDate}}.
Median recency {{num .Summary.MedianRecency}} days, median frequency {{num .Summary.MedianFrequency}}, median monetary {{num .Summary.MedianMonetary}}.</div>
</div>`))

var categoriesTemplate = template.Must(template.New("categories").Funcs(fragmentFuncs).Parse(`
<div id="categories-content">
<table class="modern-table">
<thead><tr><th>Category</th><th>Orders</th><th>Revenue</th><th>Mean</th><th>Customers</th><th>Revenue share</th><th>Cumulative</th></tr></thead>
<tbody>
{{range $i, $row := .Categories.Rows}}{{if lt $i $.MaxRows}}<tr>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.Orders}}</td>
<td><strong>{{money .TotalRevenue}}</strong></td>
<td>{{money .MeanRevenue}}</td>
<td>{{.UniqueCustomers}}</td>
<td>{{npct .RevenueShare}}</td>
<td>{{npct .CumulativeShare}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>
<div class="insight">{{.Categories.Pareto.HeadSize}} categories produce {{pct .Categories.Pareto.Target}} of revenue; {{.Categories.Pareto.TailSize}} make up the rest.</div>
<table class="modern-table">
<thead><tr><th>Category</th><th>Orders</th><th>Returns</th><th>Return rate</th><th>Completion rate</th></tr></thead>
<tbody>
{{range $i, $row := .Returns.Categories}}{{if lt $i $.MaxRows}}<tr>
<td>{{.Category}}</td>
<td>{{.TotalOrders}}</td>
<td>{{.Returns}}</td>
<td>{{pct .ReturnRate}}</td>
<td>{{pct .CompletionRate}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>
<div class="insight alert-{{.Returns.Overall.AlertLevel}}">Overall: {{.Returns.Overall.OrdersAtRisk}} of {{.Returns.Overall.TotalOrders}} orders cancelled or refunded ({{npct .Returns.Overall.ReturnRate}}), {{money .Returns.Overall.LostRevenue}} lost. Status: {{.Returns.Overall.Status}}.</div>
{{with .Returns.Alert}}<div class="insight severity-{{.Severity}}">Highest return rate: {{.Category}} at {{pct .ReturnRate}} ({{.Severity}})</div>{{end}}
</div>`))

var seasonalTemplate = template.Must(template.New("seasonal").Funcs(fragmentFuncs).Parse(`
<div id="seasonal-content">
<table class="modern-table">
<thead><tr><th>Month</th><th>Orders</th><th>Revenue</th><th>Mean</th><th>Customers</th><th>Completion</th></tr></thead>
<tbody>
{{range .Months}}<tr{{if not .Present}} class="absent"{{end}}>
<td>{{.Name}}</td>
<td>{{.Orders}}</td>
<td>{{num .TotalRevenue}}</td>
<td>{{num .MeanRevenue}}</td>
<td>{{.UniqueCustomers}}</td>
<td>{{npct .CompletionRate}}</td>
</tr>{{end}}
</tbody>
</table>
<div class="period-list">{{range .Quarters}}<span class="period">{{.Label}}: {{money .Revenue}}</span>{{end}}</div>
<div class="period-list">{{range .Seasons}}<span class="period">{{.Label}}: {{money .Revenue}}</span>{{end}}</div>
<div class="insight{{if .Volatility.HighSeasonality}} warning{{end}}">Peak month {{.PeakMonth}}, low month {{.LowMonth}}, peak quarter {{.PeakQuarter}}, peak season {{.PeakSeason}}. Monthly CoV {{npct .Volatility.CoefficientOfVariation}}{{if .Volatility.HighSeasonality}} (high seasonality){{end}}.</div>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type overviewData struct {
	Overview models.Overview
	AOV      models.NullFloat
}

type revenueData struct {
	Stats        models.RevenueStats
	Volatility   models.Volatility
	Distribution models.Distribution
	Discounts    models.DiscountImpact
}

type categoriesData struct {
	Categories models.CategoryReport
	Returns    models.ReturnsReport
	MaxRows    int
}

// section is one dashboard panel: its fragment and the signals feeding its
// charts.
type section struct {
	target  string
	html    string
	signals map[string]any
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func errorFragment(target string, err error) string {
	return fmt.Sprintf(`<div id="%s" class="error">%s</div>`, target, template.HTMLEscapeString(err.Error()))
}

func (h *SSEHandlers) overviewSection() (section, error) {
	ov, err := h.analytics.Overview()
	if err != nil {
		return section{target: "overview-content"}, err
	}
	rs, err := h.analytics.Revenue()
	if err != nil {
		return section{target: "overview-content"}, err
	}
	html, err := render(overviewTemplate, overviewData{Overview: ov, AOV: rs.Mean})
	return section{
		target:  "overview-content",
		html:    html,
		signals: map[string]any{"overview": ov},
	}, err
}

func (h *SSEHandlers) revenueSection() (section, error) {
	var d revenueData
	var err error
	if d.Stats, err = h.analytics.Revenue(); err != nil {
		return section{target: "revenue-content"}, err
	}
	if d.Volatility, err = h.analytics.Volatility(); err != nil {
		return section{target: "revenue-content"}, err
	}
	if d.Distribution, err = h.analytics.Distribution(); err != nil {
		return section{target: "revenue-content"}, err
	}
	if d.Discounts, err = h.analytics.Discounts(); err != nil {
		return section{target: "revenue-content"}, err
	}
	html, err := render(revenueTemplate, d)
	return section{
		target: "revenue-content",
		html:   html,
		signals: map[string]any{
			"histogramData": d.Distribution.Histogram,
			"curveData":     d.Distribution.CumulativeCurve,
			"quantileData":  d.Distribution.Quantiles,
		},
	}, err
}

func (h *SSEHandlers) segmentsSection() (section, error) {
	report, err := h.analytics.RFM()
	if err != nil {
		return section{target: "segments-content"}, err
	}
	html, err := render(segmentsTemplate, report)
	return section{
		target:  "segments-content",
		html:    html,
		signals: map[string]any{"segmentData": report.Segments},
	}, err
}

func (h *SSEHandlers) categoriesSection() (section, error) {
	d := categoriesData{MaxRows: maxTableRows}
	var err error
	if d.Categories, err = h.analytics.Categories(); err != nil {
		return section{target: "categories-content"}, err
	}
	if d.Returns, err = h.analytics.Returns(); err != nil {
		return section{target: "categories-content"}, err
	}
	html, err := render(categoriesTemplate, d)
	return section{
		target:  "categories-content",
		html:    html,
		signals: map[string]any{"categoryData": d.Categories.Rows},
	}, err
}

func (h *SSEHandlers) seasonalSection() (section, error) {
	report, err := h.analytics.Seasonal()
	if err != nil {
		return section{target: "seasonal-content"}, err
	}
	html, err := render(seasonalTemplate, report)
	return section{
		target: "seasonal-content",
		html:   html,
		signals: map[string]any{
			"monthlyData":  seasonal.MonthlySeries(report),
			"quarterData":  report.Quarters,
			"seasonalData": report.Seasons,
		},
	}, err
}

// stream patches each section's fragment, then sends the merged signals in
// one event. A failing section is replaced by an error fragment.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, builders ...func() (section, error)) {
	sse := datastar.NewSSE(w, r)
	logger := observability.Logger(r.Context(), h.logger)

	signals := make(map[string]any)
	for _, build := range builders {
		sec, err := build()
		if err != nil {
			logger.Warn("render dashboard section", "target", sec.target, "error", err)
			sec.html = errorFragment(sec.target, err)
		}
		if err := sse.PatchElements(sec.html); err != nil {
			logger.Error("patch elements", "target", sec.target, "error", err)
			return
		}
		for k, v := range sec.signals {
			signals[k] = v
		}
	}

	if len(signals) > 0 {
		payload, err := json.Marshal(signals)
		if err != nil {
			logger.Error("marshal signals", "error", err)
			return
		}
		if err := sse.PatchSignals(payload); err != nil {
			logger.Error("patch signals", "error", err)
			return
		}
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.overviewSection)
}

func (h *SSEHandlers) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.revenueSection)
}

func (h *SSEHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.segmentsSection)
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.categoriesSection)
}

func (h *SSEHandlers) HandleSeasonal(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.seasonalSection)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r,
		h.overviewSection,
		h.revenueSection,
		h.categoriesSection,
		h.seasonalSection,
		h.segmentsSection,
	)
}
