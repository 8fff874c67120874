package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"order-insights/internal/errors"
	"order-insights/internal/models"
	"order-insights/internal/observability"
	"order-insights/internal/seasonal"
	"order-insights/internal/services"
)

const (
	cacheControl = "public, max-age=300"
	maxLimit     = 10000
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type RevenueResponse struct {
	Stats      models.RevenueStats `json:"stats" yaml:"stats"`
	Volatility models.Volatility   `json:"volatility" yaml:"volatility"`
}

type SeasonalResponse struct {
	Report models.SeasonalReport  `json:"report" yaml:"report"`
	Series []models.PeriodRevenue `json:"monthly_series" yaml:"monthly_series"`
}

type SegmentsResponse struct {
	Segment   string               `json:"segment,omitempty" yaml:"segment,omitempty"`
	Count     int                  `json:"count" yaml:"count"`
	Customers []models.CustomerRFM `json:"customers" yaml:"customers"`
}

// respond writes data in the success envelope or err in the error envelope.
func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		errors.WriteError(w, r, h.logger, err)
		return
	}
	errors.WriteCached(w, h.logger, data, cacheControl)
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Overview()
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Revenue()
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	vol, err := h.analytics.Volatility()
	h.respond(w, r, RevenueResponse{Stats: stats, Volatility: vol}, err)
}

func (h *APIHandlers) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Distribution()
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleDiscounts(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Discounts()
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Categories()
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleReturns(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Returns()
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleSeasonal(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Seasonal()
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, SeasonalResponse{Report: report, Series: seasonal.MonthlySeries(report)}, nil)
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	report, err := h.analytics.RFM()
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	if limit > 0 && len(report.Customers) > limit {
		report.Customers = report.Customers[:limit]
	}
	h.respond(w, r, report, nil)
}

// HandleSegments lists customers, optionally filtered by ?segment= and capped
// by ?limit=.
func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	segment := r.URL.Query().Get("segment")
	rows, err := h.analytics.Segments(segment, limit)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	h.respond(w, r, SegmentsResponse{Segment: segment, Count: len(rows), Customers: rows}, nil)
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.analytics.Report(r.Context())
	h.respond(w, r, data, err)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.analytics.Stats()["record_count"] == 0 {
		status = "degraded"
	}

	errors.WriteSuccess(w, h.logger, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.logger, h.analytics.Stats())
}

// HandleReload drops the cached dataset and reparses the CSV file.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Reload(r.Context()); err != nil {
		errors.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("dataset reloaded", "request_id", observability.GetRequestID(r.Context()))
	errors.WriteSuccess(w, h.logger, h.analytics.Stats())
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 || limit > maxLimit {
		return 0, errors.Validation(fmt.Sprintf("limit must be an integer between 0 and %d", maxLimit))
	}
	return limit, nil
}
