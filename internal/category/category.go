// Package category aggregates orders by product category: revenue and order
// shares, the Pareto split and return/refund rates.
package category

import (
	"cmp"
	"slices"

	"order-insights/internal/models"
)

const DefaultParetoTarget = 80.0

type group struct {
	orders    int
	revenue   float64
	returns   int
	customers map[string]struct{}
}

func groupOrders(orders []models.Order) map[string]*group {
	groups := make(map[string]*group)
	for _, o := range orders {
		g := groups[o.ProductCategory]
		if g == nil {
			g = &group{customers: make(map[string]struct{})}
			groups[o.ProductCategory] = g
		}
		g.orders++
		g.revenue += o.OrderValue
		g.customers[o.CustomerID] = struct{}{}
		if isCategoryReturn(o.Status) {
			g.returns++
		}
	}
	return groups
}

// Analyze builds the category table sorted by revenue and splits it at the
// Pareto target.
func Analyze(orders []models.Order, target float64) models.CategoryReport {
	groups := groupOrders(orders)

	var totalRevenue float64
	for _, g := range groups {
		totalRevenue += g.revenue
	}
	totalOrders := len(orders)

	rows := make([]models.CategoryRow, 0, len(groups))
	for name, g := range groups {
		row := models.CategoryRow{
			Category:        name,
			Orders:          g.orders,
			TotalRevenue:    g.revenue,
			MeanRevenue:     g.revenue / float64(g.orders),
			UniqueCustomers: len(g.customers),
		}
		if totalRevenue != 0 {
			row.RevenueShare = models.Float(g.revenue / totalRevenue * 100)
		}
		if totalOrders != 0 {
			row.OrderShare = float64(g.orders) / float64(totalOrders) * 100
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b models.CategoryRow) int {
		if c := cmp.Compare(b.TotalRevenue, a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	var running float64
	for i := range rows {
		running += rows[i].TotalRevenue
		if totalRevenue != 0 {
			rows[i].CumulativeShare = models.Float(running / totalRevenue * 100)
		}
	}

	return models.CategoryReport{
		Rows:   rows,
		Pareto: pareto(rows, target),
	}
}

// pareto counts the rows whose cumulative share is at or below target. The
// rows are sorted by revenue, so the count is a prefix length. Undefined
// shares (zero total revenue) never count, leaving every row in the tail.
func pareto(rows []models.CategoryRow, target float64) models.Pareto {
	p := models.Pareto{Target: target, Head: []string{}, Tail: []string{}}
	for _, r := range rows {
		if r.CumulativeShare.Valid && r.CumulativeShare.Value <= target {
			p.HeadSize++
		}
	}
	for i, r := range rows {
		if i < p.HeadSize {
			p.Head = append(p.Head, r.Category)
		} else {
			p.Tail = append(p.Tail, r.Category)
		}
	}
	p.TailSize = len(rows) - p.HeadSize
	return p
}
