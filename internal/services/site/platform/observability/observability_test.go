package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerLogsMethodPathAndStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/boards/free", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/boards/free" || fields["status"] != int64(204) || fields["request_id"] != "req-123" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("level = %s, want info", entries[0].Level)
	}
}

func TestRequestLoggerCapturesImplicitStatusAndBytes(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/site.css", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(200) || fields["bytes"] != int64(2) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("level = %s, want debug for static assets", entries[0].Level)
	}
}

func TestRequestLoggerEscalatesServerErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if logs.Len() != 1 {
		t.Fatalf("error entries = %d, want 1", logs.Len())
	}
}

func TestTraceAttachesSpanContext(t *testing.T) {
	t.Parallel()

	var seen bool
	h := Trace()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = trace.SpanFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !seen || rr.Code != http.StatusOK {
		t.Fatalf("seen span = %v, status = %d", seen, rr.Code)
	}
}
