package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"github.com/rshade/hosting-emissions/internal/carbon"
	"github.com/rshade/hosting-emissions/internal/report"
	"github.com/rshade/hosting-emissions/internal/runs"
	"github.com/rshade/hosting-emissions/internal/store"
)

// CalculateRequest is the body of POST /api/calculate.
type CalculateRequest struct {
	Inputs  carbon.PartialInputs   `json:"inputs"`
	Factors carbon.FactorOverrides `json:"factors"`
}

// CalculateResponse is a successful calculation. Warnings lists soft
// issues that did not block it.
type CalculateResponse struct {
	Results      carbon.CalculationResults `json:"results"`
	Inputs       carbon.Inputs             `json:"inputs"`
	Factors      carbon.Factors            `json:"factors"`
	CalculatedAt time.Time                 `json:"calculated_at"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// SaveRunRequest is the body of POST /api/runs. Pointer fields detect
// sections the caller left out.
type SaveRunRequest struct {
	TenantID  string                     `json:"tenant_id"`
	Period    string                     `json:"period"`
	Inputs    *carbon.Inputs             `json:"inputs"`
	Factors   *carbon.Factors            `json:"factors"`
	Results   *carbon.CalculationResults `json:"results"`
	CreatedAt time.Time                  `json:"created_at"`
}

// SaveRunResponse acknowledges a saved run. Persisted is false when the
// run is only held in this instance's cache.
type SaveRunResponse struct {
	Message   string `json:"message"`
	TenantID  string `json:"tenant_id"`
	Period    string `json:"period"`
	ReportURL string `json:"report_url"`
	Persisted bool   `json:"persisted"`
}

// ListRunsResponse lists a tenant's saved periods.
type ListRunsResponse struct {
	TenantID string   `json:"tenant_id"`
	Periods  []string `json:"periods"`
}

// FactorsResponse is a tenant's custom factors after a save.
type FactorsResponse struct {
	runs.CustomFactors
	Persisted bool `json:"persisted"`
}

// HealthResponse reports the store's persistence mode.
type HealthResponse struct {
	Status    string     `json:"status"`
	Mode      store.Mode `json:"mode"`
	Reason    string     `json:"reason,omitempty"`
	CacheSize int        `json:"cache_size"`
}

// ReportURL is where the text report for a run is served.
func ReportURL(tenantID, period string) string {
	return fmt.Sprintf("/api/reports/%s/%s", tenantID, period)
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	issues := carbon.ValidateInputs(req.Inputs)
	errs, warnings := carbon.SplitIssues(issues)
	if len(errs) > 0 {
		writeError(w, r, http.StatusBadRequest, msgValidationFailed, issues...)
		return
	}

	inputs := req.Inputs.Inputs()
	factors := s.repo.EffectiveFactors(r.Context(), inputs.TenantID, req.Factors)

	factorIssues := carbon.ValidateFactors(factors)
	factorErrs, factorWarnings := carbon.SplitIssues(factorIssues)
	if len(factorErrs) > 0 {
		writeError(w, r, http.StatusBadRequest, msgValidationFailed, factorIssues...)
		return
	}

	writeJSON(w, r, http.StatusOK, CalculateResponse{
		Results:      carbon.Calculate(inputs, factors),
		Inputs:       inputs,
		Factors:      factors,
		CalculatedAt: s.now().UTC(),
		Warnings:     append(warnings, factorWarnings...),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	period := r.URL.Query().Get("period")
	if tenantID == "" || period == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingRunParams)
		return
	}

	run, found, err := s.repo.GetRun(r.Context(), tenantID, period)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", tenantID).Str("period", period).Msg("failed to read run")
		writeError(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, msgRunNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, run)
}

func (s *Server) handleSaveRun(w http.ResponseWriter, r *http.Request) {
	var req SaveRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	req.TenantID = strings.TrimSpace(req.TenantID)
	req.Period = strings.TrimSpace(req.Period)

	var missing []string
	if req.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if req.Period == "" {
		missing = append(missing, "period")
	}
	if req.Inputs == nil {
		missing = append(missing, "inputs")
	}
	if req.Factors == nil {
		missing = append(missing, "factors")
	}
	if req.Results == nil {
		missing = append(missing, "results")
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusBadRequest, msgMissingRunFields, missing...)
		return
	}

	run := runs.EmissionRun{
		TenantID:  req.TenantID,
		Period:    req.Period,
		Inputs:    *req.Inputs,
		Factors:   *req.Factors,
		Results:   *req.Results,
		CreatedAt: req.CreatedAt,
	}
	saved, res, err := s.repo.SaveRun(r.Context(), run)
	switch {
	case errors.Is(err, runs.ErrInvalidRun):
		writeError(w, r, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", req.TenantID).Msg("failed to save run")
		writeError(w, r, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	writeJSON(w, r, http.StatusCreated, SaveRunResponse{
		Message:   "Run saved successfully",
		TenantID:  saved.TenantID,
		Period:    saved.Period,
		ReportURL: ReportURL(saved.TenantID, saved.Period),
		Persisted: res.Persisted,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingTenant)
		return
	}

	writeJSON(w, r, http.StatusOK, ListRunsResponse{
		TenantID: tenantID,
		Periods:  s.repo.ListRuns(r.Context(), tenantID),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenantID, period := vars["tenant_id"], vars["period"]

	run, found, err := s.repo.GetRun(r.Context(), tenantID, period)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", tenantID).Str("period", period).Msg("failed to read run")
		writeError(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, msgRunNotFound)
		return
	}

	tenant, _, err := s.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("tenant_id", tenantID).Msg("rendering report without tenant record")
		tenant = nil
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, *run, tenant); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to render report")
		writeError(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetFactors(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	cf, found, err := s.repo.GetCustomFactors(r.Context(), tenantID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", tenantID).Msg("failed to read custom factors")
		writeError(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, msgFactorsNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, cf)
}

func (s *Server) handlePutFactors(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	var overrides carbon.FactorOverrides
	if err := decodeJSON(r, &overrides); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	issues := carbon.ValidateFactors(carbon.ResolveFactors(overrides))
	if errs, _ := carbon.SplitIssues(issues); len(errs) > 0 {
		writeError(w, r, http.StatusBadRequest, msgValidationFailed, errs...)
		return
	}

	cf, res, err := s.repo.SaveCustomFactors(r.Context(), tenantID, overrides)
	switch {
	case errors.Is(err, runs.ErrInvalidRun):
		writeError(w, r, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", tenantID).Msg("failed to save custom factors")
		writeError(w, r, http.StatusInternalServerError, msgSaveFactorsFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, FactorsResponse{CustomFactors: cf, Persisted: res.Persisted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.store.Status()

	health := "ok"
	if status.Mode == store.ModeMemoryOnly {
		health = "degraded"
	}

	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    health,
		Mode:      status.Mode,
		Reason:    strings.TrimSpace(status.Reason),
		CacheSize: s.store.CacheStats().Size,
	})
}
