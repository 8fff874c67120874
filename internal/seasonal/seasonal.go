// Package seasonal aggregates orders by calendar month, quarter and season.
package seasonal

import (
	"fmt"
	"time"

	"order-insights/internal/models"
	"order-insights/internal/stats"
)

const DefaultSeasonalityPercent = 30.0

type bucket struct {
	orders    int
	revenue   float64
	completed int
	customers map[string]struct{}
}

func (b *bucket) add(o models.Order) {
	if b.customers == nil {
		b.customers = make(map[string]struct{})
	}
	b.orders++
	b.revenue += o.OrderValue
	b.customers[o.CustomerID] = struct{}{}
	if o.Status == models.StatusCompleted {
		b.completed++
	}
}

func Analyze(orders []models.Order, thresholdPct float64) models.SeasonalReport {
	var months [12]bucket
	var quarters [4]bucket
	seasons := make(map[models.Season]*bucket)

	for _, o := range orders {
		months[o.Month-1].add(o)
		quarters[o.Quarter-1].add(o)
		b := seasons[o.Season]
		if b == nil {
			b = &bucket{}
			seasons[o.Season] = b
		}
		b.add(o)
	}

	report := models.SeasonalReport{
		Months:   monthRows(months),
		Quarters: []models.PeriodRevenue{},
		Seasons:  []models.PeriodRevenue{},
	}

	for i, q := range quarters {
		if q.orders == 0 {
			continue
		}
		report.Quarters = append(report.Quarters, models.PeriodRevenue{
			Label:   fmt.Sprintf("Q%d", i+1),
			Orders:  q.orders,
			Revenue: q.revenue,
		})
	}
	for _, s := range models.SeasonCycle {
		b, ok := seasons[s]
		if !ok {
			continue
		}
		report.Seasons = append(report.Seasons, models.PeriodRevenue{
			Label:   string(s),
			Orders:  b.orders,
			Revenue: b.revenue,
		})
	}

	report.PeakMonth, report.LowMonth = peakAndLow(report.Months)
	report.PeakQuarter = peakPeriod(report.Quarters)
	report.PeakSeason = peakPeriod(report.Seasons)
	report.Volatility = volatility(report.Months, thresholdPct)
	return report
}

func monthRows(months [12]bucket) []models.MonthRow {
	rows := make([]models.MonthRow, 12)
	for i, b := range months {
		m := time.Month(i + 1)
		row := models.MonthRow{Month: m, Name: m.String()}
		if b.orders > 0 {
			row.Present = true
			row.Orders = b.orders
			row.TotalRevenue = models.Float(b.revenue)
			row.MeanRevenue = models.Float(b.revenue / float64(b.orders))
			row.UniqueCustomers = len(b.customers)
			row.CompletionRate = models.Float(float64(b.completed) / float64(b.orders) * 100)
		}
		rows[i] = row
	}
	return rows
}

// peakAndLow skips absent months. Ties resolve to the earliest month.
func peakAndLow(rows []models.MonthRow) (peak, low string) {
	var hi, lo *models.MonthRow
	for i := range rows {
		r := &rows[i]
		if !r.Present {
			continue
		}
		if hi == nil || r.TotalRevenue.Value > hi.TotalRevenue.Value {
			hi = r
		}
		if lo == nil || r.TotalRevenue.Value < lo.TotalRevenue.Value {
			lo = r
		}
	}
	if hi != nil {
		peak = hi.Name
	}
	if lo != nil {
		low = lo.Name
	}
	return peak, low
}

func peakPeriod(periods []models.PeriodRevenue) string {
	best := -1
	for i, p := range periods {
		if best < 0 || p.Revenue > periods[best].Revenue {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return periods[best].Label
}

// volatility uses the monthly totals of months that have orders.
func volatility(rows []models.MonthRow, thresholdPct float64) models.SeasonalVolatility {
	var totals []float64
	for _, r := range rows {
		if r.Present {
			totals = append(totals, r.TotalRevenue.Value)
		}
	}
	mean := stats.Mean(totals)
	std := stats.StdDev(totals)
	cov := stats.CoV(std, mean)

	v := models.SeasonalVolatility{
		MeanMonthlyRevenue:     models.Float(mean),
		StdDev:                 models.Float(std),
		CoefficientOfVariation: models.Float(cov),
	}
	v.HighSeasonality = v.CoefficientOfVariation.Valid && cov > thresholdPct
	return v
}

// MonthlySeries returns revenue and order counts by month number for months
// with orders, in calendar order.
func MonthlySeries(report models.SeasonalReport) []models.PeriodRevenue {
	series := make([]models.PeriodRevenue, 0, 12)
	for _, r := range report.Months {
		if !r.Present {
			continue
		}
		series = append(series, models.PeriodRevenue{
			Label:   fmt.Sprintf("%d", int(r.Month)),
			Orders:  r.Orders,
			Revenue: r.TotalRevenue.Value,
		})
	}
	return series
}
