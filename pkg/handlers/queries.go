package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

// maxQueryBody bounds the JSON body of a query request.
const maxQueryBody = 64 << 10

// CaseQueryRequest is the body of POST /api/cases/{cid}/query; the case comes
// from the path.
type CaseQueryRequest struct {
	Query   string          `json:"query"`
	Filters *models.Filters `json:"filters,omitempty"`
}

// QueriesHandler serves natural-language query execution.
type QueriesHandler struct {
	queryService services.QueryService
	logger       *zap.Logger
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(queryService services.QueryService, logger *zap.Logger) *QueriesHandler {
	return &QueriesHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// RegisterRoutes registers the queries handler's routes on the given mux.
// Query execution acquires its own per-facet connections, so these routes are
// not wrapped in a scoped-connection middleware.
func (h *QueriesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Execute)
	mux.HandleFunc("POST /api/cases/{cid}/query", h.ExecuteForCase)
}

// Execute handles POST /api/query
func (h *QueriesHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req services.QueryRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, req)
}

// ExecuteForCase handles POST /api/cases/{cid}/query
func (h *QueriesHandler) ExecuteForCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var body CaseQueryRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.run(w, r, services.QueryRequest{Query: body.Query, CaseID: &caseID, Filters: body.Filters})
}

func (h *QueriesHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

func (h *QueriesHandler) run(w http.ResponseWriter, r *http.Request, req services.QueryRequest) {
	result, err := h.queryService.Execute(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "query_failed", h.logger)
		return
	}

	response := ApiResponse{Success: true, Data: result}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
