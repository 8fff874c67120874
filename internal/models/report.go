package models

import "time"

type Overview struct {
	TotalOrders     int       `json:"total_orders" yaml:"total_orders"`
	TotalRevenue    float64   `json:"total_revenue" yaml:"total_revenue"`
	UniqueCustomers int       `json:"unique_customers" yaml:"unique_customers"`
	FirstOrder      time.Time `json:"first_order" yaml:"first_order"`
	LastOrder       time.Time `json:"last_order" yaml:"last_order"`
	FilledDiscounts int       `json:"filled_discounts" yaml:"filled_discounts"`
}

type RevenueStats struct {
	Total  float64   `json:"total" yaml:"total"`
	Mean   NullFloat `json:"mean" yaml:"mean"`
	Median NullFloat `json:"median" yaml:"median"`
	StdDev NullFloat `json:"std_dev" yaml:"std_dev"`
	Min    NullFloat `json:"min" yaml:"min"`
	Max    NullFloat `json:"max" yaml:"max"`
	Q1     NullFloat `json:"q1" yaml:"q1"`
	Q3     NullFloat `json:"q3" yaml:"q3"`
	IQR    NullFloat `json:"iqr" yaml:"iqr"`
}

type Volatility struct {
	CoefficientOfVariation NullFloat `json:"coefficient_of_variation" yaml:"coefficient_of_variation"`
	BestCase               NullFloat `json:"best_case" yaml:"best_case"`
	WorstCase              NullFloat `json:"worst_case" yaml:"worst_case"`
	HighVolatility         bool      `json:"high_volatility" yaml:"high_volatility"`
}

type HistogramBin struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Count int     `json:"count" yaml:"count"`
}

type BoxPlot struct {
	Min          float64 `json:"min" yaml:"min"`
	Q1           float64 `json:"q1" yaml:"q1"`
	Median       float64 `json:"median" yaml:"median"`
	Q3           float64 `json:"q3" yaml:"q3"`
	Max          float64 `json:"max" yaml:"max"`
	LowerWhisker float64 `json:"lower_whisker" yaml:"lower_whisker"`
	UpperWhisker float64 `json:"upper_whisker" yaml:"upper_whisker"`
	Outliers     int     `json:"outliers" yaml:"outliers"`
}

type CurvePoint struct {
	OrdersPct  float64 `json:"orders_pct" yaml:"orders_pct"`
	RevenuePct float64 `json:"revenue_pct" yaml:"revenue_pct"`
}

type QuantilePoint struct {
	Label string  `json:"label" yaml:"label"`
	Level float64 `json:"level" yaml:"level"`
	Value float64 `json:"value" yaml:"value"`
}

type Distribution struct {
	Histogram       []HistogramBin  `json:"histogram" yaml:"histogram"`
	BoxPlot         *BoxPlot        `json:"box_plot" yaml:"box_plot"`
	CumulativeCurve []CurvePoint    `json:"cumulative_curve" yaml:"cumulative_curve"`
	Quantiles       []QuantilePoint `json:"quantiles" yaml:"quantiles"`
}

type DiscountPartition struct {
	Orders  int       `json:"orders" yaml:"orders"`
	Revenue NullFloat `json:"revenue" yaml:"revenue"`
	Mean    NullFloat `json:"mean" yaml:"mean"`
}

type DiscountImpact struct {
	NoDiscount        DiscountPartition `json:"no_discount" yaml:"no_discount"`
	WithDiscount      DiscountPartition `json:"with_discount" yaml:"with_discount"`
	PercentDifference NullFloat         `json:"percent_difference" yaml:"percent_difference"`
	DiscountsLowerAOV bool              `json:"discounts_lower_aov" yaml:"discounts_lower_aov"`
}

type CategoryRow struct {
	Category        string    `json:"category" yaml:"category"`
	Orders          int       `json:"orders" yaml:"orders"`
	TotalRevenue    float64   `json:"total_revenue" yaml:"total_revenue"`
	MeanRevenue     float64   `json:"mean_revenue" yaml:"mean_revenue"`
	UniqueCustomers int       `json:"unique_customers" yaml:"unique_customers"`
	RevenueShare    NullFloat `json:"revenue_share" yaml:"revenue_share"`
	OrderShare      float64   `json:"order_share" yaml:"order_share"`
	CumulativeShare NullFloat `json:"cumulative_share" yaml:"cumulative_share"`
}

type Pareto struct {
	Target   float64  `json:"target" yaml:"target"`
	HeadSize int      `json:"head_size" yaml:"head_size"`
	TailSize int      `json:"tail_size" yaml:"tail_size"`
	Head     []string `json:"head" yaml:"head"`
	Tail     []string `json:"tail" yaml:"tail"`
}

type CategoryReport struct {
	Rows   []CategoryRow `json:"rows" yaml:"rows"`
	Pareto Pareto        `json:"pareto" yaml:"pareto"`
}

type CategoryReturns struct {
	Category        string  `json:"category" yaml:"category"`
	TotalOrders     int     `json:"total_orders" yaml:"total_orders"`
	Returns         int     `json:"returns" yaml:"returns"`
	ReturnRate      float64 `json:"return_rate" yaml:"return_rate"`
	CompletedOrders int     `json:"completed_orders" yaml:"completed_orders"`
	CompletionRate  float64 `json:"completion_rate" yaml:"completion_rate"`
}

type OverallReturns struct {
	TotalOrders  int       `json:"total_orders" yaml:"total_orders"`
	OrdersAtRisk int       `json:"orders_at_risk" yaml:"orders_at_risk"`
	ReturnRate   NullFloat `json:"return_rate" yaml:"return_rate"`
	LostRevenue  float64   `json:"lost_revenue" yaml:"lost_revenue"`
	Status       string    `json:"status" yaml:"status"`
	AlertLevel   string    `json:"alert_level" yaml:"alert_level"`
}

type ReturnAlert struct {
	Category   string  `json:"category" yaml:"category"`
	ReturnRate float64 `json:"return_rate" yaml:"return_rate"`
	Severity   string  `json:"severity" yaml:"severity"`
}

type ReturnsReport struct {
	Categories []CategoryReturns `json:"categories" yaml:"categories"`
	Overall    OverallReturns    `json:"overall" yaml:"overall"`
	Alert      *ReturnAlert      `json:"alert,omitempty" yaml:"alert,omitempty"`
}

type MonthRow struct {
	Month           time.Month `json:"month" yaml:"month"`
	Name            string     `json:"name" yaml:"name"`
	Present         bool       `json:"present" yaml:"present"`
	Orders          int        `json:"orders" yaml:"orders"`
	TotalRevenue    NullFloat  `json:"total_revenue" yaml:"total_revenue"`
	MeanRevenue     NullFloat  `json:"mean_revenue" yaml:"mean_revenue"`
	UniqueCustomers int        `json:"unique_customers" yaml:"unique_customers"`
	CompletionRate  NullFloat  `json:"completion_rate" yaml:"completion_rate"`
}

type PeriodRevenue struct {
	Label   string  `json:"label" yaml:"label"`
	Orders  int     `json:"orders" yaml:"orders"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
}

type SeasonalVolatility struct {
	MeanMonthlyRevenue     NullFloat `json:"mean_monthly_revenue" yaml:"mean_monthly_revenue"`
	StdDev                 NullFloat `json:"std_dev" yaml:"std_dev"`
	CoefficientOfVariation NullFloat `json:"coefficient_of_variation" yaml:"coefficient_of_variation"`
	HighSeasonality        bool      `json:"high_seasonality" yaml:"high_seasonality"`
}

type SeasonalReport struct {
	Months      []MonthRow         `json:"months" yaml:"months"`
	Quarters    []PeriodRevenue    `json:"quarters" yaml:"quarters"`
	Seasons     []PeriodRevenue    `json:"seasons" yaml:"seasons"`
	PeakMonth   string             `json:"peak_month,omitempty" yaml:"peak_month,omitempty"`
	LowMonth    string             `json:"low_month,omitempty" yaml:"low_month,omitempty"`
	PeakQuarter string             `json:"peak_quarter,omitempty" yaml:"peak_quarter,omitempty"`
	PeakSeason  string             `json:"peak_season,omitempty" yaml:"peak_season,omitempty"`
	Volatility  SeasonalVolatility `json:"volatility" yaml:"volatility"`
}

type CustomerRFM struct {
	CustomerID string  `json:"customer_id" yaml:"customer_id"`
	Recency    int     `json:"recency" yaml:"recency"`
	Frequency  int     `json:"frequency" yaml:"frequency"`
	Monetary   float64 `json:"monetary" yaml:"monetary"`
	RScore     int     `json:"r_score" yaml:"r_score"`
	FScore     int     `json:"f_score" yaml:"f_score"`
	MScore     int     `json:"m_score" yaml:"m_score"`
	Code       string  `json:"rfm_code" yaml:"rfm_code"`
	Segment    string  `json:"segment" yaml:"segment"`
}

type SegmentCount struct {
	Segment   string  `json:"segment" yaml:"segment"`
	Customers int     `json:"customers" yaml:"customers"`
	Share     float64 `json:"share" yaml:"share"`
}

type RFMSummary struct {
	Customers       int       `json:"customers" yaml:"customers"`
	ReferenceDate   time.Time `json:"reference_date" yaml:"reference_date"`
	MeanRecency     NullFloat `json:"mean_recency" yaml:"mean_recency"`
	MedianRecency   NullFloat `json:"median_recency" yaml:"median_recency"`
	MeanFrequency   NullFloat `json:"mean_frequency" yaml:"mean_frequency"`
	MedianFrequency NullFloat `json:"median_frequency" yaml:"median_frequency"`
	MeanMonetary    NullFloat `json:"mean_monetary" yaml:"mean_monetary"`
	MedianMonetary  NullFloat `json:"median_monetary" yaml:"median_monetary"`
}

type RFMReport struct {
	Customers []CustomerRFM  `json:"customers" yaml:"customers"`
	Segments  []SegmentCount `json:"segments" yaml:"segments"`
	Summary   RFMSummary     `json:"summary" yaml:"summary"`
}

// Report bundles every view computed from one dataset.
type Report struct {
	Overview     Overview       `json:"overview" yaml:"overview"`
	Revenue      RevenueStats   `json:"revenue" yaml:"revenue"`
	Volatility   Volatility     `json:"volatility" yaml:"volatility"`
	Distribution Distribution   `json:"distribution" yaml:"distribution"`
	Discounts    DiscountImpact `json:"discounts" yaml:"discounts"`
	Categories   CategoryReport `json:"categories" yaml:"categories"`
	Returns      ReturnsReport  `json:"returns" yaml:"returns"`
	Seasonal     SeasonalReport `json:"seasonal" yaml:"seasonal"`
	RFM          RFMReport      `json:"rfm" yaml:"rfm"`
	GeneratedAt  time.Time      `json:"generated_at" yaml:"generated_at"`
}
