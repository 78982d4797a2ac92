package service

import (
	"errors"
	"math"

	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"bookit/pkg/sanitizer"
)

// ErrUnknownCode is reported when a promo code is not in the registry.
// Callers decide whether that is a hard failure or just "no discount".
var ErrUnknownCode = errors.New("promo code not recognized")

// Registry is the immutable promo code table, built once at startup from
// configuration. Lookups are case-insensitive.
type Registry struct {
	codes map[string]model.PromoCode
}

func NewRegistry(codes []model.PromoCode) *Registry {
	table := make(map[string]model.PromoCode, len(codes))
	for _, promo := range codes {
		promo.Code = sanitizer.NormalizePromoCode(promo.Code)
		table[promo.Code] = promo
	}
	return &Registry{codes: table}
}

func (r *Registry) Lookup(code string) (model.PromoCode, bool) {
	promo, ok := r.codes[sanitizer.NormalizePromoCode(code)]
	return promo, ok
}

func (r *Registry) Len() int {
	return len(r.codes)
}

// Quote is the result of applying a promo code to a price.
type Quote struct {
	DiscountAmount float64
	FinalPrice     float64
	Promo          model.PromoCode
}

// PromoService computes promotional prices. Calculate is pure: identical
// inputs always produce identical outputs and nothing is mutated.
type PromoService interface {
	Calculate(code string, originalPrice float64) (*Quote, error)
}

type promoService struct {
	registry *Registry
}

func NewPromoService(registry *Registry) PromoService {
	return &promoService{registry: registry}
}

func (s *promoService) Calculate(code string, originalPrice float64) (*Quote, error) {
	if originalPrice < 0 {
		return nil, apperrors.InvalidInput("Original price cannot be negative")
	}

	promo, ok := s.registry.Lookup(code)
	if !ok {
		return nil, ErrUnknownCode
	}

	var discountAmount float64
	switch promo.Kind {
	case model.PromoPercentage:
		discountAmount = originalPrice * promo.Value
	case model.PromoFlat:
		discountAmount = promo.Value
	}

	finalPrice := math.Max(0, originalPrice-discountAmount)

	return &Quote{
		DiscountAmount: roundHalfUp(discountAmount),
		FinalPrice:     roundHalfUp(finalPrice),
		Promo:          promo,
	}, nil
}

// roundHalfUp rounds to two decimal places, halves away from zero.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
