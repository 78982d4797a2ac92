package service

import (
	"context"
	"errors"
	"math"
	"sync"

	bookerr "bookit/internal/bookings/errors"
	"bookit/internal/bookings/events"
	"bookit/internal/bookings/repository"
	"bookit/internal/bookings/validator"
	expsvc "bookit/internal/experiences/service"
	promosvc "bookit/internal/promo/service"
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
	"bookit/pkg/sanitizer"
)

// sagaStage labels the phase a booking attempt is in, for logs and event
// payloads. A booking either reaches stageConfirmed or leaves no trace,
// except when compensation itself fails (stageInconsistent), which is
// escalated and never swallowed.
type sagaStage string

const (
	stageValidating   sagaStage = "validating"
	stageReserving    sagaStage = "reserving"
	stageRecording    sagaStage = "recording"
	stageConfirmed    sagaStage = "confirmed"
	stageCompensating sagaStage = "compensating"
	stageInconsistent sagaStage = "inconsistent"
)

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	experiences expsvc.ExperienceService
	reserver    expsvc.ReservationService
	promo       promosvc.PromoService
	validator   validator.BookingValidator
	publisher   events.Publisher
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	experiences expsvc.ExperienceService,
	reserver expsvc.ReservationService,
	promo promosvc.PromoService,
	bookingValidator validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		experiences: experiences,
		reserver:    reserver,
		promo:       promo,
		validator:   bookingValidator,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Create runs the booking saga: validate, claim slot capacity, record the
// booking. Capacity claimed for a booking that could not be recorded is
// released by exactly one compensating decrement.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	s.normalize(req)

	s.cfg.Log.Debug("Validating booking request",
		"stage", stageValidating,
		"experience_id", req.ExperienceID,
		"quantity", req.Quantity,
	)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	experience, err := s.experiences.GetByID(ctx, req.ExperienceID)
	if err != nil {
		return nil, err
	}

	finalPrice, err := s.resolvePrice(experience, req)
	if err != nil {
		return nil, err
	}

	key := req.SlotKey()

	s.cfg.Log.Debug("Reserving slot capacity",
		"stage", stageReserving,
		"experience_id", req.ExperienceID,
		"slot", key.String(),
		"quantity", req.Quantity,
	)
	reservation, err := s.reserver.Reserve(ctx, req.ExperienceID, key, req.Quantity)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ExperienceID:  req.ExperienceID,
		SlotDate:      key.Date,
		SlotTime:      key.Time,
		Quantity:      req.Quantity,
		UserName:      req.UserName,
		UserEmail:     req.UserEmail,
		PromoCodeUsed: req.PromoCode,
		FinalPrice:    finalPrice,
		IsConfirmed:   true,
	}

	s.cfg.Log.Debug("Recording booking",
		"stage", stageRecording,
		"experience_id", req.ExperienceID,
		"slot", key.String(),
	)
	booking, err = s.repo.Insert(ctx, booking)
	if err != nil {
		return nil, s.compensate(ctx, req, key, err)
	}

	s.cfg.Log.Info("Booking confirmed",
		"stage", stageConfirmed,
		"booking_id", booking.ID,
		"experience_id", booking.ExperienceID,
		"slot", key.String(),
		"quantity", booking.Quantity,
		"new_booked_count", reservation.NewBookedCount,
	)
	s.publisher.BookingConfirmed(ctx, booking)

	return booking, nil
}

// compensate undoes the reservation after a failed booking insert. The
// compensation context outlives the request context so a cancelled request
// cannot also kill the counter repair.
func (s *bookingService) compensate(ctx context.Context, req *model.BookingRequest, key model.SlotKey, insertErr error) error {
	s.cfg.Log.Warn("Booking record failed, releasing reserved capacity",
		"stage", stageCompensating,
		"experience_id", req.ExperienceID,
		"slot", key.String(),
		"quantity", req.Quantity,
		"error", insertErr,
	)

	releaseCtx := context.WithoutCancel(ctx)

	if releaseErr := s.reserver.Release(releaseCtx, req.ExperienceID, key, req.Quantity); releaseErr != nil {
		s.cfg.Log.Error("Compensation failed, slot counter may be inflated",
			"stage", stageInconsistent,
			"experience_id", req.ExperienceID,
			"slot", key.String(),
			"quantity", req.Quantity,
			"insert_error", insertErr,
			"release_error", releaseErr,
		)
		s.publisher.CompensationFailed(releaseCtx, req, releaseErr)
		return apperrors.CompensationFailure("Failed to record booking and could not release reserved capacity", releaseErr)
	}

	return apperrors.Internal("Failed to record booking", insertErr)
}

func (s *bookingService) normalize(req *model.BookingRequest) {
	req.UserName = sanitizer.NormalizeName(req.UserName)
	req.UserEmail = sanitizer.NormalizeEmail(req.UserEmail)
	req.PromoCode = sanitizer.NormalizePromoCode(req.PromoCode)
	req.SlotDate = model.NormalizeSlotDate(req.SlotDate)
}

// resolvePrice computes the booking total server-side whenever a promo code
// is supplied. A client-supplied price is honored only for promo-free
// bookings, matching the original checkout flow.
func (s *bookingService) resolvePrice(experience *model.Experience, req *model.BookingRequest) (float64, error) {
	subtotal := experience.Price * float64(req.Quantity)

	if req.PromoCode != "" {
		quote, err := s.promo.Calculate(req.PromoCode, subtotal)
		if err != nil {
			if errors.Is(err, promosvc.ErrUnknownCode) {
				return 0, apperrors.InvalidInput("Promo code is not recognized")
			}
			return 0, err
		}
		return quote.FinalPrice, nil
	}

	if req.FinalPrice > 0 {
		return req.FinalPrice, nil
	}

	return math.Floor(subtotal*100+0.5) / 100, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookerr.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookerr.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}
