// Package rfm scores customers on recency, frequency and monetary value and
// assigns them to segments.
package rfm

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"order-insights/internal/models"
	"order-insights/internal/stats"
)

const day = 24 * time.Hour

type customer struct {
	id        string
	last      time.Time
	frequency int
	monetary  float64
}

// ReferenceDate is one day after the latest order in the table.
func ReferenceDate(orders []models.Order) time.Time {
	var latest time.Time
	for i, o := range orders {
		if i == 0 || o.OrderDate.After(latest) {
			latest = o.OrderDate
		}
	}
	return latest.Add(day)
}

// Compute builds the RFM table. Customers are ordered by ID, which is also the
// tie-break order used when ranking frequency and monetary values.
func Compute(orders []models.Order) models.RFMReport {
	report := models.RFMReport{
		Customers: []models.CustomerRFM{},
		Segments:  []models.SegmentCount{},
	}
	if len(orders) == 0 {
		return report
	}
	ref := ReferenceDate(orders)

	byID := make(map[string]*customer)
	for _, o := range orders {
		c := byID[o.CustomerID]
		if c == nil {
			c = &customer{id: o.CustomerID, last: o.OrderDate}
			byID[o.CustomerID] = c
		}
		if o.OrderDate.After(c.last) {
			c.last = o.OrderDate
		}
		c.frequency++
		c.monetary += o.OrderValue
	}

	customers := make([]*customer, 0, len(byID))
	for _, c := range byID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b *customer) int {
		return cmp.Compare(a.id, b.id)
	})

	n := len(customers)
	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	rows := make([]models.CustomerRFM, n)
	for i, c := range customers {
		days := int(ref.Sub(c.last) / day)
		recency[i] = float64(days)
		frequency[i] = float64(c.frequency)
		monetary[i] = c.monetary
		rows[i] = models.CustomerRFM{
			CustomerID: c.id,
			Recency:    days,
			Frequency:  c.frequency,
			Monetary:   c.monetary,
		}
	}

	rScores := stats.QuantileScores(recency, stats.Bins)
	fScores := stats.QuantileScores(stats.RankFirst(frequency), stats.Bins)
	mScores := stats.QuantileScores(stats.RankFirst(monetary), stats.Bins)

	for i := range rows {
		// most recent customers score highest
		rows[i].RScore = stats.Bins + 1 - rScores[i]
		rows[i].FScore = fScores[i]
		rows[i].MScore = mScores[i]
		rows[i].Code = fmt.Sprintf("%d%d%d", rows[i].RScore, rows[i].FScore, rows[i].MScore)
		rows[i].Segment = Classify(rows[i].RScore, rows[i].FScore, rows[i].MScore)
	}

	report.Customers = rows
	report.Segments = CountSegments(rows)
	report.Summary = summarize(ref, recency, frequency, monetary)
	return report
}

// CountSegments returns the non-empty segments by size, largest first. Equal
// sizes keep rule order.
func CountSegments(rows []models.CustomerRFM) []models.SegmentCount {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Segment]++
	}
	out := make([]models.SegmentCount, 0, len(counts))
	for _, label := range Segments() {
		n, ok := counts[label]
		if !ok {
			continue
		}
		out = append(out, models.SegmentCount{
			Segment:   label,
			Customers: n,
			Share:     float64(n) / float64(len(rows)) * 100,
		})
	}
	slices.SortStableFunc(out, func(a, b models.SegmentCount) int {
		return cmp.Compare(b.Customers, a.Customers)
	})
	return out
}

func summarize(ref time.Time, recency, frequency, monetary []float64) models.RFMSummary {
	return models.RFMSummary{
		Customers:       len(recency),
		ReferenceDate:   ref,
		MeanRecency:     models.Float(stats.Mean(recency)),
		MedianRecency:   models.Float(stats.Median(stats.Sorted(recency))),
		MeanFrequency:   models.Float(stats.Mean(frequency)),
		MedianFrequency: models.Float(stats.Median(stats.Sorted(frequency))),
		MeanMonetary:    models.Float(stats.Mean(monetary)),
		MedianMonetary:  models.Float(stats.Median(stats.Sorted(monetary))),
	}
}
