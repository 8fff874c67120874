package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"order-insights/internal/models"
	"order-insights/internal/services"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func serveSSE(t *testing.T, h http.HandlerFunc, path string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}
	return w.Body.String()
}

func TestSSEHandlers_Sections(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name     string
		path     string
		handler  http.HandlerFunc
		contains []string
	}{
		{
			name:     "overview",
			path:     "/sse/overview",
			handler:  handlers.HandleOverview,
			contains: []string{`id="overview-content"`, "$525.00", "2024-01-05 to 2024-09-09", "overview"},
		},
		{
			name:     "revenue",
			path:     "/sse/revenue",
			handler:  handlers.HandleRevenue,
			contains: []string{`id="revenue-content"`, "<th>Median</th>", "histogramData", "curveData", "quantileData"},
		},
		{
			name:     "segments",
			path:     "/sse/segments",
			handler:  handlers.HandleSegments,
			contains: []string{`id="segments-content"`, "<th>Segment</th>", "segmentData", "3 customers"},
		},
		{
			name:     "categories",
			path:     "/sse/categories",
			handler:  handlers.HandleCategories,
			contains: []string{`id="categories-content"`, "Home &amp; Garden", "categoryData", "Highest return rate: Electronics"},
		},
		{
			name:     "seasonal",
			path:     "/sse/seasonal",
			handler:  handlers.HandleSeasonal,
			contains: []string{`id="seasonal-content"`, "Peak month September", `class="absent"`, "monthlyData", "quarterData", "seasonalData"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := serveSSE(t, tt.handler, tt.path)
			if !strings.Contains(body, "datastar-patch-elements") {
				t.Error("expected a patch-elements event")
			}
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("expected SSE body to contain %q", want)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())
	body := serveSSE(t, handlers.HandleRefreshAll, "/sse/refresh-all")

	for _, id := range []string{"overview-content", "revenue-content", "categories-content", "seasonal-content", "segments-content"} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("expected refresh-all to patch %s", id)
		}
	}
	if n := strings.Count(body, "datastar-patch-signals"); n != 1 {
		t.Errorf("expected signals merged into one event, got %d", n)
	}
}

func TestSSEHandlers_NoDataRendersError(t *testing.T) {
	empty := services.NewAnalytics(nil, services.DefaultOptions(), testLogger())
	handlers := NewSSEHandlers(empty, testLogger())

	body := serveSSE(t, handlers.HandleCategories, "/sse/categories")
	if !strings.Contains(body, `id="categories-content" class="error"`) {
		t.Error("expected an error fragment for the categories panel")
	}
	if strings.Contains(body, "datastar-patch-signals") {
		t.Error("no signals should be sent when nothing rendered")
	}
}

func TestCategoriesTemplate_RowLimit(t *testing.T) {
	rows := make([]models.CategoryRow, 75)
	for i := range rows {
		rows[i] = models.CategoryRow{Category: "cat", Orders: 1}
	}
	html, err := render(categoriesTemplate, categoriesData{
		Categories: models.CategoryReport{Rows: rows},
		MaxRows:    maxTableRows,
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	if got := strings.Count(html, "category-badge"); got != maxTableRows {
		t.Errorf("expected %d rows, got %d", maxTableRows, got)
	}
}

func TestFragmentFuncs(t *testing.T) {
	num := fragmentFuncs["num"].(func(models.NullFloat) string)
	npct := fragmentFuncs["npct"].(func(models.NullFloat) string)

	if got := num(models.Undefined()); got != "n/a" {
		t.Errorf("num(undefined) = %q", got)
	}
	if got := num(models.Float(12.345)); got != "12.35" && got != "12.34" {
		t.Errorf("num(12.345) = %q", got)
	}
	if got := npct(models.Float(50)); got != "50.0%" {
		t.Errorf("npct(50) = %q", got)
	}

	nmoney := fragmentFuncs["nmoney"].(func(models.NullFloat) string)
	if got := nmoney(models.Undefined()); got != "n/a" {
		t.Errorf("nmoney(undefined) = %q", got)
	}
	if got := nmoney(models.Float(1250)); got != "$1250.00" {
		t.Errorf("nmoney(1250) = %q", got)
	}
}

func TestErrorFragmentEscapes(t *testing.T) {
	html := errorFragment("x", errors.New("<script>"))
	if strings.Contains(html, "<script>") {
		t.Errorf("error text must be escaped: %s", html)
	}
}
