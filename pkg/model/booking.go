package model

import (
	"time"
)

// Booking is the durable record of a granted reservation. It is written
// exactly once, after the reservation engine has claimed capacity, and is
// never mutated afterwards.
type Booking struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	ExperienceID  string    `json:"experience_id" bson:"experience_id"`
	SlotDate      time.Time `json:"slot_date" bson:"slot_date"`
	SlotTime      string    `json:"slot_time" bson:"slot_time"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	UserName      string    `json:"user_name" bson:"user_name"`
	UserEmail     string    `json:"user_email" bson:"user_email"`
	PromoCodeUsed string    `json:"promo_code_used,omitempty" bson:"promo_code_used,omitempty"`
	FinalPrice    float64   `json:"final_price" bson:"final_price"`
	IsConfirmed   bool      `json:"is_confirmed" bson:"is_confirmed"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// BookingRequest carries the validated input of a booking attempt through
// the ledger. FinalPrice is advisory: the ledger recomputes the price from
// the catalogue whenever a promo code is supplied.
type BookingRequest struct {
	ExperienceID string    `validate:"required,mongodb"`
	SlotDate     time.Time `validate:"required"`
	SlotTime     string    `validate:"required,min=1,max=20"`
	Quantity     int       `validate:"required,min=1,max=200"`
	UserName     string    `validate:"required,min=2,max=100"`
	UserEmail    string    `validate:"required,email"`
	PromoCode    string    `validate:"omitempty,min=2,max=32"`
	FinalPrice   float64   `validate:"omitempty,gte=0"`
}

func (r *BookingRequest) SlotKey() SlotKey {
	return NewSlotKey(r.SlotDate, r.SlotTime)
}
