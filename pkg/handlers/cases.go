package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ScopeMiddleware attaches a scoped database connection to the request.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// CasesHandler serves per-case history, analytics and embedding backfill.
type CasesHandler struct {
	history   services.HistoryService
	analytics services.AnalyticsService
	backfill  services.BackfillService
	logger    *zap.Logger
}

// NewCasesHandler creates a new cases handler.
func NewCasesHandler(history services.HistoryService, analytics services.AnalyticsService, backfill services.BackfillService, logger *zap.Logger) *CasesHandler {
	return &CasesHandler{
		history:   history,
		analytics: analytics,
		backfill:  backfill,
		logger:    logger,
	}
}

// RegisterRoutes registers the case routes, each wrapped in scoped.
func (h *CasesHandler) RegisterRoutes(mux *http.ServeMux, scoped ScopeMiddleware) {
	base := "/api/cases/{cid}"

	mux.HandleFunc("GET "+base+"/queries", scoped(h.ListQueries))
	mux.HandleFunc("GET "+base+"/analytics", scoped(h.Analytics))
	mux.HandleFunc("POST "+base+"/embeddings", scoped(h.Backfill))
}

// ListQueries handles GET /api/cases/{cid}/queries
func (h *CasesHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}
	limit, ok := ParseLimit(w, r, defaultHistoryLimit, maxHistoryLimit, h.logger)
	if !ok {
		return
	}

	records, err := h.history.List(r.Context(), caseID, limit)
	if err != nil {
		h.logger.Error("Failed to list query history",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		writeServiceError(w, err, "history_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: records}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Analytics handles GET /api/cases/{cid}/analytics
func (h *CasesHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	analytics, err := h.analytics.CaseAnalytics(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Failed to compute case analytics",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		writeServiceError(w, err, "analytics_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: analytics}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Backfill handles POST /api/cases/{cid}/embeddings
func (h *CasesHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.backfill.Backfill(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Embedding backfill failed",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		writeServiceError(w, err, "backfill_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
