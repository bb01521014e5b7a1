package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
)

type GradingHandler struct {
	service *app.Service
}

func NewGradingHandler(service *app.Service) *GradingHandler {
	return &GradingHandler{
		service: service,
	}
}

func (h *GradingHandler) HandleListMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.service.Registry.ListMetrics(activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": list})
}

func (h *GradingHandler) HandleCreateMetric(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	var req models.MetricCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	metric, err := h.service.Registry.CreateMetric(req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, metric)
}

func (h *GradingHandler) HandleUpdateMetric(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid metric id", http.StatusBadRequest)
		return
	}

	var upd models.MetricUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	metric, err := h.service.Registry.UpdateMetric(id, upd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metric)
}

func (h *GradingHandler) HandleDeleteMetric(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid metric id", http.StatusBadRequest)
		return
	}

	if err := h.service.Registry.DeleteMetric(id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GradingHandler) HandleSeedDefaultMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	created, err := h.service.Registry.SeedDefaults()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"created": len(created),
		"metrics": created,
	})
}

func (h *GradingHandler) HandleGradeProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			"200",
		).Observe(duration)
	}()

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	projectID := r.PathValue("project")

	evaluator := r.Header.Get(h.service.Config.API.EvaluatorIDHeader)
	if evaluator == "" {
		http.Error(w, "Invalid evaluator id specified", http.StatusUnauthorized)
		return
	}

	if err := h.service.ValidateAuthAndEvaluator(r, evaluator); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// The boundary layer owns the grader identity: the header wins over
	// whatever the body claims.
	req.GradedBy = evaluator

	grade, err := h.service.GradeProject(projectID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.GradesSubmittedTotal.WithLabelValues(grade.FinalGrade).Inc()
	metrics.GradePercentageHistogram.WithLabelValues(grade.FinalGrade).Observe(grade.PercentageScore)

	writeJSON(w, http.StatusOK, grade)
}

func (h *GradingHandler) HandleGetGrade(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	grade, err := h.service.GetProjectGrade(r.PathValue("project"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grade)
}

func (h *GradingHandler) HandleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	deleted, err := h.service.DeleteProjectGrade(r.PathValue("project"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

func (h *GradingHandler) HandleUngradedProjects(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	projects, err := h.service.GetProjectsForGrading()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *GradingHandler) HandleGradingReport(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	rows, err := h.service.Store.FetchGradingReport()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

func (h *GradingHandler) HandleIssueEvaluatorToken(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if !h.service.Config.Server.EnableAuth {
		http.Error(w, "Auth is disabled", http.StatusConflict)
		return
	}

	evaluator := r.PathValue("evaluator")
	info, isNew, err := h.service.Auth.TokenManager().FetchOrCreateEvaluatorToken(r.Context(), evaluator)
	if err != nil {
		logger.Error.Printf("Failed to issue token for %s: %v", evaluator, err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, info)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

// writeError maps the typed grading errors onto HTTP statuses; anything
// unrecognized is a 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
		integrityErr  *models.IntegrityError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "validation failed",
			"problems": validationErr.Problems,
		})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": notFoundErr.Msg})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": conflictErr.Msg})
	case errors.As(err, &integrityErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": integrityErr.Msg})
	default:
		logger.Error.Printf("ERROR: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
