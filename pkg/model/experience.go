package model

import (
	"fmt"
	"time"
)

type Experience struct {
	ID          string  `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string  `json:"title" bson:"title"`
	Description string  `json:"description" bson:"description"`
	Price       float64 `json:"price" bson:"price"`
	Duration    string  `json:"duration" bson:"duration"`
	Image       string  `json:"image" bson:"image"`
	Location    string  `json:"location" bson:"location"`
	Slots       []Slot  `json:"slots" bson:"slots"`
}

// Slot is a bookable (date, time) offering inside an Experience.
// IsAvailable is derived from the counters and is recomputed inside the
// same atomic update that changes BookedCount; it is never authoritative
// on its own.
type Slot struct {
	Date        time.Time `json:"date" bson:"date"`
	Time        string    `json:"time" bson:"time"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	BookedCount int       `json:"booked_count" bson:"booked_count"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
}

// Available returns the remaining bookable units of the slot.
func (s *Slot) Available() int {
	return s.Capacity - s.BookedCount
}

// SlotKey identifies a slot within an experience by calendar day and
// display time (e.g. "10:00 AM"). Dates are normalized to midnight UTC so
// that lookups and atomic updates address the same embedded document.
type SlotKey struct {
	Date time.Time
	Time string
}

func NewSlotKey(date time.Time, displayTime string) SlotKey {
	return SlotKey{
		Date: NormalizeSlotDate(date),
		Time: displayTime,
	}
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s_%s", k.Date.Format("2006-01-02"), k.Time)
}

// NormalizeSlotDate truncates a timestamp to its UTC calendar day.
func NormalizeSlotDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Matches reports whether the slot is the one addressed by the key.
func (s *Slot) Matches(key SlotKey) bool {
	return NormalizeSlotDate(s.Date).Equal(key.Date) && s.Time == key.Time
}
