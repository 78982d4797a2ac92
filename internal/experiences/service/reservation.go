package service

import (
	"context"
	"errors"
	"time"

	experr "bookit/internal/experiences/errors"
	"bookit/internal/experiences/repository"
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
)

// Reservation is the engine's record of a granted claim on slot capacity.
type Reservation struct {
	ExperienceID   string
	Key            model.SlotKey
	Quantity       int
	NewBookedCount int
	IsAvailable    bool
}

// ReservationService claims and releases slot capacity. Reserve is the
// only code path that may increment a slot's counter, and it does so
// exclusively through the store's guarded atomic update; the preceding
// read is advisory. Different slot keys never contend with each other.
type ReservationService interface {
	Reserve(ctx context.Context, experienceID string, key model.SlotKey, quantity int) (*Reservation, error)
	Release(ctx context.Context, experienceID string, key model.SlotKey, quantity int) error
}

type reservationService struct {
	repo repository.ExperienceRepository
	cfg  *config.Config
}

func NewReservationService(repo repository.ExperienceRepository, cfg *config.Config) ReservationService {
	return &reservationService{
		repo: repo,
		cfg:  cfg,
	}
}

// Reserve claims quantity units of the slot. The read-check-write cycle
// is optimistic: when the conditional write loses a race it re-reads and
// tries again, up to the configured attempt budget. Business rejections
// (unknown slot, insufficient capacity) are terminal and never retried.
func (s *reservationService) Reserve(ctx context.Context, experienceID string, key model.SlotKey, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("Quantity must be a positive integer")
	}

	for attempt := 1; attempt <= s.cfg.ReserveMaxAttempts; attempt++ {
		slot, err := s.repo.GetSlot(ctx, experienceID, key)
		if err != nil {
			return nil, s.translateLookupError(err, experienceID, key)
		}

		available := slot.Available()
		if quantity > available {
			return nil, apperrors.InsufficientCapacity(quantity, available)
		}

		newBookedCount := slot.BookedCount + quantity
		isAvailable := newBookedCount < slot.Capacity

		err = s.repo.IncrementSlotIfUnchanged(ctx, experienceID, key, slot.BookedCount, quantity, isAvailable)
		if err == nil {
			s.cfg.Log.Info("Slot capacity reserved",
				"experience_id", experienceID,
				"slot", key.String(),
				"quantity", quantity,
				"booked_count", newBookedCount,
				"is_available", isAvailable,
				"attempt", attempt,
			)
			return &Reservation{
				ExperienceID:   experienceID,
				Key:            key,
				Quantity:       quantity,
				NewBookedCount: newBookedCount,
				IsAvailable:    isAvailable,
			}, nil
		}

		if errors.Is(err, experr.ErrGuardFailed) {
			s.cfg.Log.Debug("Reservation write lost a race, retrying",
				"experience_id", experienceID,
				"slot", key.String(),
				"attempt", attempt,
			)
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, apperrors.Internal("Reservation abandoned before commit", err)
			}
			continue
		}
		if errors.Is(err, experr.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Experience", experienceID)
		}

		return nil, apperrors.Internal("Failed to reserve slot capacity", err)
	}

	s.cfg.Log.Warn("Reservation retries exhausted",
		"experience_id", experienceID,
		"slot", key.String(),
		"quantity", quantity,
		"attempts", s.cfg.ReserveMaxAttempts,
	)
	return nil, apperrors.Conflict("Slot is under heavy contention, please retry")
}

// Release returns quantity units to the slot. It is the compensating
// action of the booking saga and is attempted exactly once; a failure
// here means the counter and the ledger disagree and an operator has to
// reconcile them.
func (s *reservationService) Release(ctx context.Context, experienceID string, key model.SlotKey, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("Quantity must be a positive integer")
	}

	err := s.repo.DecrementSlot(ctx, experienceID, key, quantity)
	if err == nil {
		s.cfg.Log.Info("Slot capacity released",
			"experience_id", experienceID,
			"slot", key.String(),
			"quantity", quantity,
		)
		return nil
	}

	if errors.Is(err, experr.ErrGuardFailed) {
		return apperrors.Internal("Slot counter lower than release quantity", err)
	}
	if errors.Is(err, experr.ErrNotFound) {
		return apperrors.NotFoundWithID("Experience", experienceID)
	}
	return apperrors.Internal("Failed to release slot capacity", err)
}

func (s *reservationService) translateLookupError(err error, experienceID string, key model.SlotKey) error {
	switch {
	case errors.Is(err, experr.ErrNotFound):
		return apperrors.NotFoundWithID("Experience", experienceID)
	case errors.Is(err, experr.ErrSlotNotFound):
		return apperrors.NotFound("Slot " + key.String())
	case errors.Is(err, experr.ErrInvalidID):
		return apperrors.InvalidInput("Invalid experience ID format")
	default:
		return apperrors.Internal("Failed to read slot", err)
	}
}

func (s *reservationService) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(s.cfg.ReserveRetryBackoff * time.Duration(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
