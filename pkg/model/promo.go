package model

type PromoKind string

const (
	PromoPercentage PromoKind = "percentage"
	PromoFlat       PromoKind = "flat"
)

// PromoCode is a static registry entry. The registry is built once at
// process start from configuration and is read-only afterwards.
type PromoCode struct {
	Code        string    `json:"code"`
	Kind        PromoKind `json:"type"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
}
