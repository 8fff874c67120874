package category

import (
	"cmp"
	"slices"

	"order-insights/internal/models"
)

const (
	overallStatusThreshold = 25.0
	overallCritical        = 30.0
	overallWarning         = 20.0

	SeverityCrisis      = "crisis"
	SeverityInvestigate = "investigate"
	SeverityGood        = "good"

	AlertCritical = "critical"
	AlertWarning  = "warning"
	AlertOK       = "ok"
)

// Per-category returns count cancelled and returned orders.
func isCategoryReturn(s models.OrderStatus) bool {
	return s == models.StatusCancelled || s == models.StatusReturned
}

// The dataset-wide rate counts cancelled and refunded orders. This differs
// from isCategoryReturn and both definitions are reported as they are.
func isOverallReturn(s models.OrderStatus) bool {
	return s == models.StatusCancelled || s == models.StatusRefunded
}

func Returns(orders []models.Order) models.ReturnsReport {
	groups := groupOrders(orders)

	rows := make([]models.CategoryReturns, 0, len(groups))
	for name, g := range groups {
		rate := float64(g.returns) / float64(g.orders) * 100
		rows = append(rows, models.CategoryReturns{
			Category:        name,
			TotalOrders:     g.orders,
			Returns:         g.returns,
			ReturnRate:      rate,
			CompletedOrders: g.orders - g.returns,
			CompletionRate:  100 - rate,
		})
	}
	slices.SortFunc(rows, func(a, b models.CategoryReturns) int {
		if c := cmp.Compare(b.ReturnRate, a.ReturnRate); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	report := models.ReturnsReport{
		Categories: rows,
		Overall:    Overall(orders),
	}
	if len(rows) > 0 {
		report.Alert = alertFor(rows[0])
	}
	return report
}

func Overall(orders []models.Order) models.OverallReturns {
	out := models.OverallReturns{TotalOrders: len(orders)}
	for _, o := range orders {
		if isOverallReturn(o.Status) {
			out.OrdersAtRisk++
			out.LostRevenue += o.OrderValue
		}
	}
	if out.TotalOrders == 0 {
		out.Status = "Good"
		out.AlertLevel = AlertOK
		return out
	}

	rate := float64(out.OrdersAtRisk) / float64(out.TotalOrders) * 100
	out.ReturnRate = models.Float(rate)

	out.Status = "Good"
	if rate > overallStatusThreshold {
		out.Status = "Above Average"
	}
	switch {
	case rate > overallCritical:
		out.AlertLevel = AlertCritical
	case rate > overallWarning:
		out.AlertLevel = AlertWarning
	default:
		out.AlertLevel = AlertOK
	}
	return out
}

// alertFor grades the category with the highest return rate.
func alertFor(worst models.CategoryReturns) *models.ReturnAlert {
	alert := &models.ReturnAlert{
		Category:   worst.Category,
		ReturnRate: worst.ReturnRate,
		Severity:   SeverityGood,
	}
	switch {
	case worst.ReturnRate > overallCritical:
		alert.Severity = SeverityCrisis
	case worst.ReturnRate > overallWarning:
		alert.Severity = SeverityInvestigate
	}
	return alert
}
