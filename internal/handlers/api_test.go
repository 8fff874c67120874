package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"order-insights/internal/models"
	"order-insights/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testOrders() []models.Order {
	return []models.Order{
		{OrderID: "O1", CustomerID: "C1", OrderDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), OrderValue: 120, ProductCategory: "Electronics", Status: models.StatusCompleted},
		{OrderID: "O2", CustomerID: "C1", OrderDate: time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), OrderValue: 60, DiscountApplied: 10, ProductCategory: "Electronics", Status: models.StatusReturned},
		{OrderID: "O3", CustomerID: "C2", OrderDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), OrderValue: 45, ProductCategory: "Books", Status: models.StatusCompleted},
		{OrderID: "O4", CustomerID: "C3", OrderDate: time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC), OrderValue: 300, ProductCategory: "Home & Garden", Status: models.StatusRefunded},
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
	a.SetData(testOrders())
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewAPIHandlers() should set logger field")
	}
}

func TestAPIHandlers_Views(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
		check   func(t *testing.T, data json.RawMessage)
	}{
		{"overview", "/api/overview", handlers.HandleOverview, func(t *testing.T, data json.RawMessage) {
			var ov models.Overview
			mustUnmarshal(t, data, &ov)
			if ov.TotalOrders != 4 || ov.UniqueCustomers != 3 || ov.TotalRevenue != 525 {
				t.Errorf("unexpected overview %+v", ov)
			}
		}},
		{"revenue", "/api/revenue", handlers.HandleRevenue, func(t *testing.T, data json.RawMessage) {
			var resp RevenueResponse
			mustUnmarshal(t, data, &resp)
			if resp.Stats.Total != 525 {
				t.Errorf("expected total 525, got %v", resp.Stats.Total)
			}
			if !resp.Volatility.CoefficientOfVariation.Valid {
				t.Error("expected a coefficient of variation for four orders")
			}
		}},
		{"distribution", "/api/distribution", handlers.HandleDistribution, func(t *testing.T, data json.RawMessage) {
			var d models.Distribution
			mustUnmarshal(t, data, &d)
			if len(d.Histogram) != 20 {
				t.Errorf("expected 20 histogram bins, got %d", len(d.Histogram))
			}
			if len(d.Quantiles) != 21 {
				t.Errorf("expected 21 quantile points, got %d", len(d.Quantiles))
			}
		}},
		{"discounts", "/api/discounts", handlers.HandleDiscounts, func(t *testing.T, data json.RawMessage) {
			var d models.DiscountImpact
			mustUnmarshal(t, data, &d)
			if d.WithDiscount.Orders != 1 || d.NoDiscount.Orders != 3 {
				t.Errorf("unexpected partitions %+v", d)
			}
		}},
		{"categories", "/api/categories", handlers.HandleCategories, func(t *testing.T, data json.RawMessage) {
			var c models.CategoryReport
			mustUnmarshal(t, data, &c)
			if len(c.Rows) != 3 || c.Rows[0].Category != "Home & Garden" {
				t.Errorf("unexpected category rows %+v", c.Rows)
			}
		}},
		{"returns", "/api/returns", handlers.HandleReturns, func(t *testing.T, data json.RawMessage) {
			var r models.ReturnsReport
			mustUnmarshal(t, data, &r)
			if r.Overall.OrdersAtRisk != 1 {
				t.Errorf("expected 1 order at risk, got %d", r.Overall.OrdersAtRisk)
			}
			if r.Alert == nil || r.Alert.Category != "Electronics" {
				t.Errorf("expected Electronics alert, got %+v", r.Alert)
			}
		}},
		{"seasonal", "/api/seasonal", handlers.HandleSeasonal, func(t *testing.T, data json.RawMessage) {
			var s SeasonalResponse
			mustUnmarshal(t, data, &s)
			if len(s.Report.Months) != 12 {
				t.Errorf("expected 12 months, got %d", len(s.Report.Months))
			}
			if len(s.Series) != 4 {
				t.Errorf("expected 4 present months in series, got %d", len(s.Series))
			}
		}},
		{"rfm", "/api/rfm", handlers.HandleRFM, func(t *testing.T, data json.RawMessage) {
			var r models.RFMReport
			mustUnmarshal(t, data, &r)
			if len(r.Customers) != 3 {
				t.Errorf("expected 3 customers, got %d", len(r.Customers))
			}
		}},
		{"segments", "/api/segments", handlers.HandleSegments, func(t *testing.T, data json.RawMessage) {
			var s SegmentsResponse
			mustUnmarshal(t, data, &s)
			if s.Count != 3 {
				t.Errorf("expected 3 customers, got %d", s.Count)
			}
		}},
		{"report", "/api/report", handlers.HandleReport, func(t *testing.T, data json.RawMessage) {
			var r models.Report
			mustUnmarshal(t, data, &r)
			if r.Overview.TotalOrders != 4 || r.GeneratedAt.IsZero() {
				t.Errorf("unexpected report header %+v", r.Overview)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}

			env := decodeEnvelope(t, w)
			if !env.Success {
				t.Fatal("expected success=true in response")
			}
			tt.check(t, env.Data)
		})
	}
}

func mustUnmarshal(t *testing.T, data json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %T: %v", v, err)
	}
}

func TestAPIHandlers_NoData(t *testing.T) {
	empty := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
	handlers := NewAPIHandlers(empty, testLogger())

	for _, h := range []http.HandlerFunc{
		handlers.HandleOverview,
		handlers.HandleRevenue,
		handlers.HandleCategories,
		handlers.HandleSeasonal,
		handlers.HandleRFM,
		handlers.HandleReport,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		w := httptest.NewRecorder()
		h(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
		env := decodeEnvelope(t, w)
		if env.Success || env.Error == nil || env.Error.Code != "SERVICE_UNAVAILABLE" {
			t.Errorf("expected SERVICE_UNAVAILABLE envelope, got %+v", env)
		}
	}
}

func TestAPIHandlers_UndefinedValuesAreNull(t *testing.T) {
	a := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
	a.SetData([]models.Order{
		{OrderID: "1", CustomerID: "A", OrderDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), OrderValue: 10, ProductCategory: "X", Status: models.StatusCompleted},
	})
	handlers := NewAPIHandlers(a, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/discounts", nil)
	w := httptest.NewRecorder()
	handlers.HandleDiscounts(w, req)

	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if got := string(raw.Data["percent_difference"]); got != "null" {
		t.Errorf("expected percent_difference null, got %s", got)
	}

	var with map[string]json.RawMessage
	mustUnmarshal(t, raw.Data["with_discount"], &with)
	if got := string(with["mean"]); got != "null" {
		t.Errorf("expected with_discount.mean null, got %s", got)
	}
}

func TestAPIHandlers_QueryValidation(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name           string
		target         string
		handler        http.HandlerFunc
		expectedStatus int
	}{
		{"bad limit", "/api/segments?limit=abc", handlers.HandleSegments, http.StatusBadRequest},
		{"negative limit", "/api/rfm?limit=-1", handlers.HandleRFM, http.StatusBadRequest},
		{"unknown segment", "/api/segments?segment=Whales", handlers.HandleSegments, http.StatusBadRequest},
		{"known segment", "/api/segments?segment=Lost", handlers.HandleSegments, http.StatusOK},
		{"rfm limit", "/api/rfm?limit=1", handlers.HandleRFM, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()
			tt.handler(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rfm?limit=1", nil)
	w := httptest.NewRecorder()
	handlers.HandleRFM(w, req)
	var r models.RFMReport
	mustUnmarshal(t, decodeEnvelope(t, w).Data, &r)
	if len(r.Customers) != 1 {
		t.Errorf("expected 1 customer with limit=1, got %d", len(r.Customers))
	}
	if len(r.Segments) == 0 {
		t.Error("limit should not trim segment counts")
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	tests := []struct {
		name      string
		analytics *services.Analytics
		want      string
	}{
		{"with data", createTestAnalytics(), "healthy"},
		{"without data", services.NewAnalytics(nil, services.DefaultOptions(), testLogger()), "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewAPIHandlers(tt.analytics, testLogger())
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handlers.HandleHealth(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "" {
				t.Errorf("health endpoint should not be cached, got %q", cc)
			}

			var health map[string]string
			mustUnmarshal(t, decodeEnvelope(t, w).Data, &health)
			if health["status"] != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, health["status"])
			}
			if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
				t.Errorf("timestamp is not RFC3339: %v", err)
			}
		})
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	mustUnmarshal(t, decodeEnvelope(t, w).Data, &stats)
	if stats["record_count"] != float64(4) {
		t.Errorf("expected record_count 4, got %v", stats["record_count"])
	}
	if _, ok := stats["loader"]; !ok {
		t.Error("expected loader stats")
	}
}

func TestAPIHandlers_HandleReload(t *testing.T) {
	t.Run("nothing loaded", func(t *testing.T) {
		handlers := NewAPIHandlers(createTestAnalytics(), testLogger())
		req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
		w := httptest.NewRecorder()
		handlers.HandleReload(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("reparses file", func(t *testing.T) {
		header := "order_id,customer_id,order_date,order_value,discount_applied,product_category,order_status\n"
		path := filepath.Join(t.TempDir(), "orders.csv")
		if err := os.WriteFile(path, []byte(header+"O1,C1,2024-01-01,10,0,A,completed\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		a := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
		if err := a.LoadFromCSV(context.Background(), path); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(header+"O1,C1,2024-01-01,10,0,A,completed\nO2,C2,2024-01-02,20,0,B,completed\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		handlers := NewAPIHandlers(a, testLogger())
		req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
		w := httptest.NewRecorder()
		handlers.HandleReload(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		var stats map[string]any
		mustUnmarshal(t, decodeEnvelope(t, w).Data, &stats)
		if stats["record_count"] != float64(2) {
			t.Errorf("expected record_count 2 after reload, got %v", stats["record_count"])
		}
	})

	t.Run("broken file keeps old data", func(t *testing.T) {
		header := "order_id,customer_id,order_date,order_value,discount_applied,product_category,order_status\n"
		path := filepath.Join(t.TempDir(), "orders.csv")
		if err := os.WriteFile(path, []byte(header+"O1,C1,2024-01-01,10,0,A,completed\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		a := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
		if err := a.LoadFromCSV(context.Background(), path); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(header+"O1,C1,2024-01-01,-10,0,A,completed\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		handlers := NewAPIHandlers(a, testLogger())
		req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
		w := httptest.NewRecorder()
		handlers.HandleReload(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}
		if a.Stats()["record_count"] != 1 {
			t.Errorf("previous dataset should stay loaded, got %v", a.Stats()["record_count"])
		}
	})
}
