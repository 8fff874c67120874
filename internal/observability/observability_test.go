package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"order-insights/internal/config"
)

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.LoggerConfig{Level: "info", Format: "json"}, &buf).Info("hello", "k", 1)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json handler should emit JSON: %v (%s)", err, buf.String())
	}
	if line["service"] != "order-insights" || line["msg"] != "hello" {
		t.Errorf("unexpected line %v", line)
	}

	buf.Reset()
	NewLogger(config.LoggerConfig{Level: "warn", Format: "text"}, &buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStartSpan_Inheritance(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	ctx, root := StartSpan(ctx, "GET /api/report")
	if root.TraceID != "req-1" || root.ParentID != "" {
		t.Errorf("root span should use the request id as trace, got %+v", root)
	}

	_, child := StartSpan(ctx, "report.build")
	if child.TraceID != root.TraceID || child.ParentID != root.SpanID {
		t.Errorf("child should join the parent trace, got %+v", child)
	}
	if child.SpanID == root.SpanID {
		t.Error("span ids must be unique")
	}

	_, orphan := StartSpan(context.Background(), "dataset.load")
	if orphan.TraceID == "" || orphan.TraceID == "req-1" {
		t.Errorf("span without parent or request should mint a trace id, got %q", orphan.TraceID)
	}
}

func TestSpan_End(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, span := StartSpan(context.Background(), "dataset.load")
	span.SetTag("rows", "10")
	span.End(logger, nil)
	if span.Status != SpanStatusOK || !strings.Contains(buf.String(), `"msg":"span finished"`) || !strings.Contains(buf.String(), `"rows":"10"`) {
		t.Errorf("unexpected span log %s", buf.String())
	}

	buf.Reset()
	_, span = StartSpan(context.Background(), "dataset.load")
	span.End(logger, errors.New("missing column"))
	if span.Status != SpanStatusError || span.Error != "missing column" {
		t.Errorf("failed span = %+v", span)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("failed span should log at warn, got %s", buf.String())
	}
}

func TestLogger_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithRequestID(context.Background(), "req-9")
	ctx, span := StartSpan(ctx, "op")
	Logger(ctx, base).Info("x")

	for _, want := range []string{`"request_id":"req-9"`, `"trace_id":"` + span.TraceID + `"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log line %s should contain %s", buf.String(), want)
		}
	}

	if GetRequestID(context.Background()) != "" || GetSpan(context.Background()) != nil {
		t.Error("empty context should carry nothing")
	}
}
