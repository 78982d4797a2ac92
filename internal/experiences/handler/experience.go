package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"bookit/internal/experiences/service"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
	"bookit/pkg/sanitizer"
)

type ExperienceHandler struct {
	service service.ExperienceService
	log     *logger.Logger
}

func NewExperienceHandler(service service.ExperienceService, log *logger.Logger) *ExperienceHandler {
	return &ExperienceHandler{
		service: service,
		log:     log,
	}
}

func (h *ExperienceHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "error", writeErr)
		}
		return
	}

	search := sanitizer.TrimAndNormalize(r.URL.Query().Get("search"))

	experiences, total, err := h.service.GetAll(r.Context(), search, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, experiences, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *ExperienceHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	experience, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, experience); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ExperienceHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/experiences", h.GetAll)
	router.GET("/experiences/id/:id", h.GetByID)
}
