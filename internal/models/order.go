package models

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
	StatusRefunded  OrderStatus = "refunded"
	StatusOther     OrderStatus = "other"
)

// ParseOrderStatus maps a raw status to one of the known statuses. Anything
// unrecognised is StatusOther.
func ParseOrderStatus(raw string) OrderStatus {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusCompleted:
		return StatusCompleted
	case StatusCancelled:
		return StatusCancelled
	case StatusReturned:
		return StatusReturned
	case StatusRefunded:
		return StatusRefunded
	default:
		return StatusOther
	}
}

type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonFall   Season = "Fall"
)

// SeasonCycle is the fixed presentation order of seasons.
var SeasonCycle = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall}

// SeasonOf uses calendar months only, so 1 March is Spring regardless of the
// equinox.
func SeasonOf(month time.Month) Season {
	switch month {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

type Order struct {
	OrderID         string
	CustomerID      string
	OrderDate       time.Time
	OrderValue      float64
	DiscountApplied float64
	ProductCategory string
	Status          OrderStatus
	RawStatus       string

	Month     time.Month
	MonthName string
	Quarter   int
	ISOWeek   int
	Season    Season
}

// Enrich fills the calendar fields derived from OrderDate.
func (o *Order) Enrich() {
	o.Month = o.OrderDate.Month()
	o.MonthName = o.Month.String()
	o.Quarter = (int(o.Month)-1)/3 + 1
	_, o.ISOWeek = o.OrderDate.ISOWeek()
	o.Season = SeasonOf(o.Month)
}

// Dataset is the immutable order table produced by a load.
type Dataset struct {
	Orders          []Order
	Source          string
	ModTime         time.Time
	Size            int64
	LoadedAt        time.Time
	FilledDiscounts int
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Orders)
}
