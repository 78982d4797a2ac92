package events

import (
	"context"
	"time"

	"bookit/pkg/kafka"
	"bookit/pkg/logger"
	"bookit/pkg/model"
)

const (
	EventBookingConfirmed   = "booking.confirmed"
	EventCompensationFailed = "booking.compensation_failed"
	eventSource             = "bookit"
	eventSchemaVersion      = "1"
)

// Publisher emits booking lifecycle events. Publishing is best-effort for
// confirmations; compensation failures must reach an operator, so those
// are logged at error level even when the emit succeeds.
type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking)
	CompensationFailed(ctx context.Context, req *model.BookingRequest, cause error)
}

// BookingConfirmedEvent is the payload of a booking.confirmed event.
type BookingConfirmedEvent struct {
	BookingID    string    `json:"booking_id"`
	ExperienceID string    `json:"experience_id"`
	SlotDate     time.Time `json:"slot_date"`
	SlotTime     string    `json:"slot_time"`
	Quantity     int       `json:"quantity"`
	UserEmail    string    `json:"user_email"`
	FinalPrice   float64   `json:"final_price"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// CompensationFailedEvent flags a slot whose counter may be inflated and
// needs manual reconciliation.
type CompensationFailedEvent struct {
	ExperienceID string    `json:"experience_id"`
	SlotDate     time.Time `json:"slot_date"`
	SlotTime     string    `json:"slot_time"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

// partitionKey keeps all events of one slot on one partition so consumers
// observe them in order.
func partitionKey(experienceID string, key model.SlotKey) string {
	return experienceID + ":" + key.String()
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) {
	key := model.NewSlotKey(booking.SlotDate, booking.SlotTime)

	msg := kafka.NewMessage().
		WithKey(partitionKey(booking.ExperienceID, key)).
		WithEventType(EventBookingConfirmed).
		WithSource(eventSource).
		WithHeader(kafka.HeaderSchemaVersion, eventSchemaVersion).
		WithValue(BookingConfirmedEvent{
			BookingID:    booking.ID,
			ExperienceID: booking.ExperienceID,
			SlotDate:     booking.SlotDate,
			SlotTime:     booking.SlotTime,
			Quantity:     booking.Quantity,
			UserEmail:    booking.UserEmail,
			FinalPrice:   booking.FinalPrice,
			ConfirmedAt:  booking.CreatedAt,
		}).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("failed to publish booking confirmed event",
			"booking_id", booking.ID,
			"experience_id", booking.ExperienceID,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) CompensationFailed(ctx context.Context, req *model.BookingRequest, cause error) {
	key := req.SlotKey()

	msg := kafka.NewMessage().
		WithKey(partitionKey(req.ExperienceID, key)).
		WithEventType(EventCompensationFailed).
		WithSource(eventSource).
		WithHeader(kafka.HeaderSchemaVersion, eventSchemaVersion).
		WithValue(CompensationFailedEvent{
			ExperienceID: req.ExperienceID,
			SlotDate:     key.Date,
			SlotTime:     key.Time,
			Quantity:     req.Quantity,
			Reason:       cause.Error(),
			OccurredAt:   time.Now().UTC(),
		}).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("failed to publish compensation failed event",
			"experience_id", req.ExperienceID,
			"slot", key.String(),
			"error", err,
		)
	}
}

// NoopPublisher is used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) BookingConfirmed(context.Context, *model.Booking) {}

func (NoopPublisher) CompensationFailed(context.Context, *model.BookingRequest, error) {}
