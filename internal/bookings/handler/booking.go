package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"bookit/internal/bookings/service"
	apperrors "bookit/pkg/errors"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
	"bookit/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

type createBookingRequest struct {
	ExperienceID string  `json:"experienceId"`
	SlotDate     string  `json:"slotDate"`
	SlotTime     string  `json:"slotTime"`
	UserName     string  `json:"userName"`
	UserEmail    string  `json:"userEmail"`
	PromoCode    string  `json:"promoCode"`
	FinalPrice   float64 `json:"finalPrice"`
	Quantity     int     `json:"quantity"`
}

type createBookingResponse struct {
	BookingID  string  `json:"bookingId"`
	FinalPrice float64 `json:"finalPrice"`
}

// parseSlotDate accepts a calendar day or a full timestamp; the time of
// day is discarded either way.
func parseSlotDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Request body must be valid JSON"), "Create")
		return
	}

	slotDate, err := parseSlotDate(req.SlotDate)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("slotDate must be YYYY-MM-DD or RFC 3339"), "Create")
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	booking, err := h.service.Create(r.Context(), &model.BookingRequest{
		ExperienceID: req.ExperienceID,
		SlotDate:     slotDate,
		SlotTime:     req.SlotTime,
		Quantity:     quantity,
		UserName:     req.UserName,
		UserEmail:    req.UserEmail,
		PromoCode:    req.PromoCode,
		FinalPrice:   req.FinalPrice,
	})
	if err != nil {
		h.writeError(w, err, "Create")
		return
	}

	if err := httputil.WriteCreated(w, createBookingResponse{
		BookingID:  booking.ID,
		FinalPrice: booking.FinalPrice,
	}); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "GetByID")
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, err, "GetAll")
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err, "GetAll")
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error, handlerName string) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.GetAll)
	router.GET("/bookings/id/:id", h.GetByID)
}
