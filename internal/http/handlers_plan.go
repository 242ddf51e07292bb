package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"budgetplan/internal/core"
	"budgetplan/internal/services"
)

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.svc.Plan(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleSavePlan replaces the plan. ?mode=debounced coalesces rapid edits
// and answers 202.
func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	mode, err := services.ParseSaveMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var plan core.FinancialData
	if err := decodeJSON(w, r, &plan); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.SavePlan(r.Context(), plan, mode); err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if mode == services.Debounced {
		status = http.StatusAccepted
	}
	writeJSON(w, status, plan)
}

func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.PlanSummary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	var req exchangeRateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	plan, err := s.svc.SetExchangeRate(r.Context(), req.Rate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleRemoveSavings(w http.ResponseWriter, r *http.Request) {
	plan, err := s.svc.RemoveSavingsBucket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// decodeValid decodes and validates a request struct, answering 400 or 422
// on failure.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: validationFields(err),
		})
		return false
	}
	return true
}
