package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"bookit/internal/promo/service"
	apperrors "bookit/pkg/errors"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
)

type PromoHandler struct {
	service service.PromoService
	log     *logger.Logger
}

func NewPromoHandler(service service.PromoService, log *logger.Logger) *PromoHandler {
	return &PromoHandler{
		service: service,
		log:     log,
	}
}

type validatePromoRequest struct {
	Code          string   `json:"code"`
	OriginalPrice *float64 `json:"originalPrice"`
}

type promoDetails struct {
	Code        string  `json:"code"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
}

type validatePromoResponse struct {
	IsValid        bool         `json:"isValid"`
	DiscountAmount float64      `json:"discountAmount"`
	FinalPrice     float64      `json:"finalPrice"`
	PromoDetails   promoDetails `json:"promoDetails"`
}

func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Request body must be valid JSON"), "Validate")
		return
	}

	if req.Code == "" || req.OriginalPrice == nil {
		h.writeError(w, apperrors.InvalidInput("Both code and originalPrice are required"), "Validate")
		return
	}

	quote, err := h.service.Calculate(req.Code, *req.OriginalPrice)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCode) {
			err = apperrors.NotFound("Promo code")
		}
		h.writeError(w, err, "Validate")
		return
	}

	resp := validatePromoResponse{
		IsValid:        true,
		DiscountAmount: quote.DiscountAmount,
		FinalPrice:     quote.FinalPrice,
		PromoDetails: promoDetails{
			Code:        quote.Promo.Code,
			Type:        string(quote.Promo.Kind),
			Value:       quote.Promo.Value,
			Description: quote.Promo.Description,
		},
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "error", err)
	}
}

func (h *PromoHandler) writeError(w http.ResponseWriter, err error, handlerName string) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *PromoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/promo/validate", h.Validate)
}
