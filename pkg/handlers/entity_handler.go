package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

const (
	defaultEntityLimit = 100
	maxEntityLimit     = 1000
)

// EntityListResponse for GET /api/entities
type EntityListResponse struct {
	Entities []*models.Entity `json:"entities"`
	Total    int              `json:"total"`
}

// EntityHandler serves the persisted entity index.
type EntityHandler struct {
	entityService services.EntityService
	logger        *zap.Logger
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(entityService services.EntityService, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		entityService: entityService,
		logger:        logger,
	}
}

// RegisterRoutes registers the entity routes, each wrapped in scoped.
func (h *EntityHandler) RegisterRoutes(mux *http.ServeMux, scoped ScopeMiddleware) {
	mux.HandleFunc("GET /api/entities", scoped(h.List))
	mux.HandleFunc("GET /api/entities/{type}/{value}", scoped(h.Get))
}

// List handles GET /api/entities?type=&limit=
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, defaultEntityLimit, maxEntityLimit, h.logger)
	if !ok {
		return
	}
	entityType := models.EntityType(r.URL.Query().Get("type"))

	entities, err := h.entityService.List(r.Context(), entityType, limit)
	if err != nil {
		h.logger.Error("Failed to list entities",
			zap.String("type", string(entityType)),
			zap.Error(err))
		writeServiceError(w, err, "entities_failed", h.logger)
		return
	}

	data := EntityListResponse{Entities: entities, Total: len(entities)}
	if data.Entities == nil {
		data.Entities = []*models.Entity{}
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/entities/{type}/{value}
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(r.PathValue("type"))
	value := r.PathValue("value")

	entity, err := h.entityService.GetByValue(r.Context(), entityType, value)
	if err != nil {
		writeServiceError(w, err, "entities_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entity}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
