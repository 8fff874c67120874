// Package templates holds the dashboard shell. Panels start empty and are
// filled by Datastar patches streamed from the /sse endpoints.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	Title    = "Order Insights Dashboard"
	Subtitle = "E-commerce order analytics"

	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
)

// Panel is one dashboard section bound to an SSE stream.
type Panel struct {
	ID     string
	Title  string
	Stream string
}

var Panels = []Panel{
	{ID: "overview", Title: "Dataset Overview", Stream: "/sse/overview"},
	{ID: "revenue", Title: "Revenue Statistics and Discount Impact", Stream: "/sse/revenue"},
	{ID: "categories", Title: "Category Performance and Returns", Stream: "/sse/categories"},
	{ID: "seasonal", Title: "Seasonal Trends", Stream: "/sse/seasonal"},
	{ID: "segments", Title: "Customer Segments (RFM)", Stream: "/sse/segments"},
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6fa;color:#222}
header{background:#1f2a44;color:#fff;padding:1.5rem 2rem}
header p{margin:.25rem 0 0;opacity:.8}
main{display:grid;gap:1.5rem;padding:1.5rem 2rem}
section{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.modern-table{width:100%;border-collapse:collapse;margin:.5rem 0}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #eee;text-align:left}
.kpi-grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(160px,1fr));gap:1rem}
.kpi{display:flex;flex-direction:column}.kpi-label{font-size:.8rem;color:#666}.kpi-value{font-size:1.3rem;font-weight:600}
.category-badge{background:#e8edff;border-radius:4px;padding:0 .4rem}
.insight{margin:.5rem 0;padding:.5rem;border-left:3px solid #4c6ef5;background:#f8f9ff}
.warning,.alert-critical,.severity-crisis{border-left-color:#e03131}
.alert-warning,.severity-investigate{border-left-color:#f59f00}
.absent td{color:#aaa}.error{color:#e03131}
.period{margin-right:1rem}
`

// Layout wraps body in the HTML document.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		fmt.Fprintf(&b, "<title>%s</title>\n", templ.EscapeString(title))
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>\n", datastarScript)
		fmt.Fprintf(&b, "<style>%s</style>\n</head>\n<body>\n", styles)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// PanelView renders an empty panel that loads its content on page init.
func PanelView(p Panel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<section id=\"%s\">\n<h2>%s</h2>\n<div id=\"%s-content\" data-init=\"@get('%s')\">Loading...</div>\n</section>\n",
			templ.EscapeString(p.ID),
			templ.EscapeString(p.Title),
			templ.EscapeString(p.ID),
			templ.EscapeString(p.Stream))
		return err
	})
}

func header() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<header>\n<h1>%s</h1>\n<p>%s</p>\n<button data-on-click=\"@get('/sse/refresh-all')\">Refresh all</button>\n</header>\n",
			templ.EscapeString(Title),
			templ.EscapeString(Subtitle))
		return err
	})
}

// Dashboard is the full page served at /.
func Dashboard() templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := header().Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<main data-signals=\"{histogramData: [], curveData: [], quantileData: [], categoryData: [], monthlyData: [], quarterData: [], seasonalData: [], segmentData: []}\">\n"); err != nil {
			return err
		}
		for _, p := range Panels {
			if err := PanelView(p).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main>\n")
		return err
	})
	return Layout(Title, body)
}
