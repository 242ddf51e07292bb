package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	applog "budgetplan/internal/log"
)

func TestMiddlewareLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Format = "json"
	cfg.Output = &buf
	logger := applog.New(cfg).WithComponent(applog.ComponentHTTP)

	m := NewMiddleware(func(r *http.Request) string { return "10.0.0.1" }, logger)
	h := chimw.RequestID(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plan", nil))

	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") {
		t.Fatalf("expected completion log, got %s", out)
	}
	if !strings.Contains(out, `"status_code":418`) {
		t.Fatalf("expected status in log, got %s", out)
	}
	if !strings.Contains(out, `"request_id"`) {
		t.Fatalf("expected request id in log, got %s", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestMiddlewareCountsServerErrors(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Fatalf("expected 1 server error, got %d", got)
	}
}
