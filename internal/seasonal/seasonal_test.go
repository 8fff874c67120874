package seasonal

import (
	"testing"
	"time"

	"order-insights/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(month time.Month, day int, customer string, value float64, status models.OrderStatus) models.Order {
	o := models.Order{
		OrderID:    customer + month.String(),
		CustomerID: customer,
		OrderDate:  time.Date(2024, month, day, 12, 0, 0, 0, time.UTC),
		OrderValue: value,
		Status:     status,
	}
	o.Enrich()
	return o
}

func TestSeasonBoundariesFollowCalendarMonths(t *testing.T) {
	tests := []struct {
		month time.Month
		want  models.Season
	}{
		{time.December, models.SeasonWinter},
		{time.February, models.SeasonWinter},
		{time.March, models.SeasonSpring},
		{time.May, models.SeasonSpring},
		{time.June, models.SeasonSummer},
		{time.August, models.SeasonSummer},
		{time.September, models.SeasonFall},
		{time.November, models.SeasonFall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.SeasonOf(tt.month), tt.month.String())
	}

	// 1 March is Spring even though it precedes the equinox.
	assert.Equal(t, models.SeasonSpring, at(time.March, 1, "a", 1, models.StatusCompleted).Season)
}

func TestAnalyzeMonths(t *testing.T) {
	orders := []models.Order{
		at(time.January, 5, "a", 100, models.StatusCompleted),
		at(time.January, 6, "b", 50, models.StatusCancelled),
		at(time.March, 1, "a", 300, models.StatusCompleted),
		at(time.December, 24, "c", 20, models.StatusCompleted),
	}
	report := Analyze(orders, DefaultSeasonalityPercent)

	require.Len(t, report.Months, 12)
	jan := report.Months[0]
	assert.Equal(t, "January", jan.Name)
	assert.True(t, jan.Present)
	assert.Equal(t, 2, jan.Orders)
	assert.InDelta(t, 150.0, jan.TotalRevenue.Value, 1e-9)
	assert.InDelta(t, 75.0, jan.MeanRevenue.Value, 1e-9)
	assert.Equal(t, 2, jan.UniqueCustomers)
	assert.InDelta(t, 50.0, jan.CompletionRate.Value, 1e-9)

	feb := report.Months[1]
	assert.False(t, feb.Present)
	assert.False(t, feb.TotalRevenue.Valid)

	assert.Equal(t, "March", report.PeakMonth)
	assert.Equal(t, "December", report.LowMonth)

	require.Len(t, report.Quarters, 2)
	assert.Equal(t, "Q1", report.Quarters[0].Label)
	assert.InDelta(t, 450.0, report.Quarters[0].Revenue, 1e-9)
	assert.Equal(t, "Q4", report.Quarters[1].Label)
	assert.Equal(t, "Q1", report.PeakQuarter)

	labels := []string{}
	for _, s := range report.Seasons {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"Winter", "Spring"}, labels)
	assert.Equal(t, "Spring", report.PeakSeason)

	series := MonthlySeries(report)
	require.Len(t, series, 3)
	assert.Equal(t, "1", series[0].Label)
	assert.Equal(t, "12", series[2].Label)
}

func TestSeasonalVolatility(t *testing.T) {
	orders := []models.Order{
		at(time.January, 1, "a", 100, models.StatusCompleted),
		at(time.February, 1, "a", 100, models.StatusCompleted),
		at(time.March, 1, "a", 400, models.StatusCompleted),
	}
	report := Analyze(orders, DefaultSeasonalityPercent)
	v := report.Volatility

	require.True(t, v.CoefficientOfVariation.Valid)
	assert.InDelta(t, 200.0, v.MeanMonthlyRevenue.Value, 1e-9)
	assert.InDelta(t, 173.205, v.StdDev.Value, 1e-3)
	assert.InDelta(t, 86.6025, v.CoefficientOfVariation.Value, 1e-3)
	assert.True(t, v.HighSeasonality)
}

func TestSeasonalVolatilitySingleMonthUndefined(t *testing.T) {
	report := Analyze([]models.Order{at(time.July, 4, "a", 10, models.StatusCompleted)}, DefaultSeasonalityPercent)

	assert.False(t, report.Volatility.StdDev.Valid)
	assert.False(t, report.Volatility.CoefficientOfVariation.Valid)
	assert.False(t, report.Volatility.HighSeasonality)
	assert.Equal(t, "July", report.PeakMonth)
	assert.Equal(t, "July", report.LowMonth)
}

func TestAnalyzeEmpty(t *testing.T) {
	report := Analyze(nil, DefaultSeasonalityPercent)

	assert.Len(t, report.Months, 12)
	assert.Empty(t, report.PeakMonth)
	assert.Empty(t, report.Quarters)
	assert.Empty(t, report.Seasons)
}
