// Package metrics computes revenue statistics, volatility, distribution
// summaries and discount impact over the full order table.
package metrics

import (
	"fmt"
	"math"

	"order-insights/internal/models"
	"order-insights/internal/stats"
)

const (
	HistogramBins            = 20
	DefaultVolatilityPercent = 50.0
	quantileStep             = 5
	whiskerIQR               = 1.5
)

func orderValues(orders []models.Order) []float64 {
	values := make([]float64, len(orders))
	for i, o := range orders {
		values[i] = o.OrderValue
	}
	return values
}

func Overview(ds *models.Dataset) models.Overview {
	ov := models.Overview{TotalOrders: ds.Len()}
	if ds == nil {
		return ov
	}
	ov.FilledDiscounts = ds.FilledDiscounts

	customers := make(map[string]struct{})
	for i, o := range ds.Orders {
		ov.TotalRevenue += o.OrderValue
		customers[o.CustomerID] = struct{}{}
		if i == 0 || o.OrderDate.Before(ov.FirstOrder) {
			ov.FirstOrder = o.OrderDate
		}
		if i == 0 || o.OrderDate.After(ov.LastOrder) {
			ov.LastOrder = o.OrderDate
		}
	}
	ov.UniqueCustomers = len(customers)
	return ov
}

func Revenue(orders []models.Order) models.RevenueStats {
	values := orderValues(orders)
	sorted := stats.Sorted(values)

	rs := models.RevenueStats{
		Total:  stats.Sum(values),
		Mean:   models.Float(stats.Mean(values)),
		Median: models.Float(stats.Median(sorted)),
		StdDev: models.Float(stats.StdDev(values)),
		Q1:     models.Float(stats.Quantile(sorted, 0.25)),
		Q3:     models.Float(stats.Quantile(sorted, 0.75)),
	}
	if len(sorted) > 0 {
		rs.Min = models.Float(sorted[0])
		rs.Max = models.Float(sorted[len(sorted)-1])
	}
	if rs.Q1.Valid && rs.Q3.Valid {
		rs.IQR = models.Float(rs.Q3.Value - rs.Q1.Value)
	}
	return rs
}

// Volatility projects best and worst cases as mean ± cov·mean with cov kept
// as a percentage number. It is a heuristic, not a confidence interval.
func Volatility(rs models.RevenueStats, thresholdPct float64) models.Volatility {
	var v models.Volatility
	if !rs.Mean.Valid || !rs.StdDev.Valid {
		return v
	}
	cov := stats.CoV(rs.StdDev.Value, rs.Mean.Value)
	v.CoefficientOfVariation = models.Float(cov)
	if !v.CoefficientOfVariation.Valid {
		return v
	}
	mean := rs.Mean.Value
	v.BestCase = models.Float(mean + cov*mean)
	v.WorstCase = models.Float(mean - cov*mean)
	v.HighVolatility = cov > thresholdPct
	return v
}

func Distribution(orders []models.Order) models.Distribution {
	values := orderValues(orders)
	var d models.Distribution
	if len(values) == 0 {
		return d
	}
	sorted := stats.Sorted(values)

	for _, b := range stats.Histogram(values, HistogramBins) {
		d.Histogram = append(d.Histogram, models.HistogramBin{Lower: b.Lower, Upper: b.Upper, Count: b.Count})
	}
	d.BoxPlot = boxPlot(sorted)
	d.CumulativeCurve = cumulativeCurve(sorted)
	d.Quantiles = quantileLadder(sorted)
	return d
}

func boxPlot(sorted []float64) *models.BoxPlot {
	bp := &models.BoxPlot{
		Min:    sorted[0],
		Q1:     stats.Quantile(sorted, 0.25),
		Median: stats.Median(sorted),
		Q3:     stats.Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	iqr := bp.Q3 - bp.Q1
	lowFence := bp.Q1 - whiskerIQR*iqr
	highFence := bp.Q3 + whiskerIQR*iqr

	bp.LowerWhisker = bp.Q1
	bp.UpperWhisker = bp.Q3
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			bp.Outliers++
			continue
		}
		bp.LowerWhisker = math.Min(bp.LowerWhisker, v)
		bp.UpperWhisker = math.Max(bp.UpperWhisker, v)
	}
	return bp
}

// cumulativeCurve is a Lorenz-style curve: orders ascending by value on x,
// share of revenue on y, both in percent. Undefined when revenue is zero.
func cumulativeCurve(sorted []float64) []models.CurvePoint {
	total := stats.Sum(sorted)
	if total == 0 {
		return nil
	}
	n := float64(len(sorted))
	points := make([]models.CurvePoint, len(sorted))
	var running float64
	for i, v := range sorted {
		running += v
		points[i] = models.CurvePoint{
			OrdersPct:  float64(i+1) / n * 100,
			RevenuePct: running / total * 100,
		}
	}
	return points
}

func quantileLadder(sorted []float64) []models.QuantilePoint {
	ladder := make([]models.QuantilePoint, 0, 100/quantileStep+1)
	for pct := 0; pct <= 100; pct += quantileStep {
		level := float64(pct) / 100
		ladder = append(ladder, models.QuantilePoint{
			Label: fmt.Sprintf("%d%%", pct),
			Level: level,
			Value: stats.Quantile(sorted, level),
		})
	}
	return ladder
}

// Discounts compares orders without a discount against discounted ones.
// Negative discounts fall in neither partition. An empty partition has
// undefined revenue and mean.
func Discounts(orders []models.Order) models.DiscountImpact {
	var noDisc, withDisc []float64
	for _, o := range orders {
		switch {
		case o.DiscountApplied == 0:
			noDisc = append(noDisc, o.OrderValue)
		case o.DiscountApplied > 0:
			withDisc = append(withDisc, o.OrderValue)
		}
	}

	impact := models.DiscountImpact{
		NoDiscount:   partition(noDisc),
		WithDiscount: partition(withDisc),
	}
	no, with := impact.NoDiscount.Mean, impact.WithDiscount.Mean
	if no.Valid && with.Valid && no.Value != 0 {
		impact.PercentDifference = models.Float((no.Value - with.Value) / no.Value * 100)
		impact.DiscountsLowerAOV = impact.PercentDifference.Valid && impact.PercentDifference.Value > 0
	}
	return impact
}

func partition(values []float64) models.DiscountPartition {
	p := models.DiscountPartition{Orders: len(values)}
	if len(values) == 0 {
		p.Revenue, p.Mean = models.Undefined(), models.Undefined()
		return p
	}
	p.Revenue = models.Float(stats.Sum(values))
	p.Mean = models.Float(stats.Mean(values))
	return p
}
