package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"budgetplan/internal/ledger"
	applog "budgetplan/internal/log"
	"budgetplan/internal/middleware/trace"
	"budgetplan/internal/ports"
	"budgetplan/internal/services"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrDepositNotDeletable):
		return http.StatusConflict
	case errors.Is(err, ports.ErrReportNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, services.ErrBucketNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ledger.ErrUnknownBucket):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrBalancesUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Server errors are logged and sent to
// Sentry; their message is not exposed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}

	fields := applog.NewFields().WithRequestID(trace.GetRequestID(r)).WithError(err)
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		append(fields.ToSlice(), applog.FieldPath, r.URL.Path)...)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	writeError(w, status, http.StatusText(status))
}
