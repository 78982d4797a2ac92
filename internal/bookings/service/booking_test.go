package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bookit/internal/bookings/events"
	"bookit/internal/bookings/validator"
	expsvc "bookit/internal/experiences/service"
	promosvc "bookit/internal/promo/service"
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/logger"
	"bookit/pkg/model"
)

type mockBookingRepo struct {
	insertFn   func(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	findByIDFn func(ctx context.Context, id string) (*model.Booking, error)
	findAllFn  func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	countFn    func(ctx context.Context) (int64, error)
}

func (m *mockBookingRepo) Insert(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	return m.insertFn(ctx, booking)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return m.findAllFn(ctx, limit, offset)
}

func (m *mockBookingRepo) Count(ctx context.Context) (int64, error) {
	return m.countFn(ctx)
}

type mockExperienceService struct {
	getByIDFn func(ctx context.Context, id string) (*model.Experience, error)
}

func (m *mockExperienceService) GetByID(ctx context.Context, id string) (*model.Experience, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockExperienceService) GetAll(ctx context.Context, search string, limit int, offset int64) ([]*model.Experience, int64, error) {
	return nil, 0, errors.New("not implemented")
}

type mockReserver struct {
	reserveFn func(ctx context.Context, experienceID string, key model.SlotKey, quantity int) (*expsvc.Reservation, error)
	releaseFn func(ctx context.Context, experienceID string, key model.SlotKey, quantity int) error
}

func (m *mockReserver) Reserve(ctx context.Context, experienceID string, key model.SlotKey, quantity int) (*expsvc.Reservation, error) {
	return m.reserveFn(ctx, experienceID, key, quantity)
}

func (m *mockReserver) Release(ctx context.Context, experienceID string, key model.SlotKey, quantity int) error {
	return m.releaseFn(ctx, experienceID, key, quantity)
}

type mockPublisher struct {
	confirmed    []*model.Booking
	compensation []*model.BookingRequest
}

func (m *mockPublisher) BookingConfirmed(_ context.Context, booking *model.Booking) {
	m.confirmed = append(m.confirmed, booking)
}

func (m *mockPublisher) CompensationFailed(_ context.Context, req *model.BookingRequest, _ error) {
	m.compensation = append(m.compensation, req)
}

var _ events.Publisher = (*mockPublisher)(nil)

const testExperienceID = "507f1f77bcf86cd799439011"

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
}

func testPromoService() promosvc.PromoService {
	return promosvc.NewPromoService(promosvc.NewRegistry([]model.PromoCode{
		{Code: "SAVE10", Kind: model.PromoPercentage, Value: 0.10},
	}))
}

func testRequest() *model.BookingRequest {
	return &model.BookingRequest{
		ExperienceID: testExperienceID,
		SlotDate:     time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
		SlotTime:     "10:00 AM",
		Quantity:     2,
		UserName:     "Ada Lovelace",
		UserEmail:    "ada@example.com",
	}
}

func grantingReserver(reserveCalls, releaseCalls *int) *mockReserver {
	return &mockReserver{
		reserveFn: func(_ context.Context, _ string, _ model.SlotKey, quantity int) (*expsvc.Reservation, error) {
			*reserveCalls++
			return &expsvc.Reservation{Quantity: quantity, NewBookedCount: quantity}, nil
		},
		releaseFn: func(_ context.Context, _ string, _ model.SlotKey, _ int) error {
			*releaseCalls++
			return nil
		},
	}
}

func catalogWith(price float64) *mockExperienceService {
	return &mockExperienceService{
		getByIDFn: func(_ context.Context, id string) (*model.Experience, error) {
			return &model.Experience{ID: id, Title: "Sunset Sailing", Price: price}, nil
		},
	}
}

func newTestService(repo *mockBookingRepo, experiences *mockExperienceService, reserver *mockReserver, publisher *mockPublisher) BookingService {
	return NewBookingService(
		repo,
		experiences,
		reserver,
		testPromoService(),
		validator.NewBookingValidator(),
		publisher,
		testConfig(),
	)
}

func TestCreateConfirmsBooking(t *testing.T) {
	var reserveCalls, releaseCalls int
	var inserted *model.Booking

	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) (*model.Booking, error) {
			booking.ID = "booking-1"
			inserted = booking
			return booking, nil
		},
	}
	publisher := &mockPublisher{}

	svc := newTestService(repo, catalogWith(350), grantingReserver(&reserveCalls, &releaseCalls), publisher)

	req := testRequest()
	req.FinalPrice = 700

	booking, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reserveCalls != 1 {
		t.Errorf("expected one reserve call, got %d", reserveCalls)
	}
	if releaseCalls != 0 {
		t.Errorf("expected no release calls, got %d", releaseCalls)
	}
	if inserted == nil || !inserted.IsConfirmed {
		t.Error("expected a confirmed booking record")
	}
	if booking.FinalPrice != 700 {
		t.Errorf("expected client price honored without promo, got %v", booking.FinalPrice)
	}
	if len(publisher.confirmed) != 1 {
		t.Errorf("expected one confirmed event, got %d", len(publisher.confirmed))
	}
}

func TestCreateRecomputesPriceWithPromo(t *testing.T) {
	var reserveCalls, releaseCalls int

	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) (*model.Booking, error) {
			booking.ID = "booking-1"
			return booking, nil
		},
	}

	svc := newTestService(repo, catalogWith(350), grantingReserver(&reserveCalls, &releaseCalls), &mockPublisher{})

	req := testRequest()
	req.PromoCode = "save10"
	req.FinalPrice = 1 // must be ignored

	booking, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 350 * 2 less 10% is 630.
	if booking.FinalPrice != 630 {
		t.Errorf("expected recomputed price 630, got %v", booking.FinalPrice)
	}
	if booking.PromoCodeUsed != "SAVE10" {
		t.Errorf("expected normalized promo code, got %q", booking.PromoCodeUsed)
	}
}

func TestCreateRejectsUnknownPromo(t *testing.T) {
	var reserveCalls, releaseCalls int

	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) (*model.Booking, error) {
			t.Fatal("insert must not be reached")
			return nil, nil
		},
	}

	svc := newTestService(repo, catalogWith(350), grantingReserver(&reserveCalls, &releaseCalls), &mockPublisher{})

	req := testRequest()
	req.PromoCode = "NOSUCHCODE"

	_, err := svc.Create(context.Background(), req)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
	if reserveCalls != 0 {
		t.Errorf("no capacity may be claimed for a rejected request, got %d reserve calls", reserveCalls)
	}
}

func TestCreateValidationFailureClaimsNothing(t *testing.T) {
	var reserveCalls, releaseCalls int

	experiences := &mockExperienceService{
		getByIDFn: func(_ context.Context, _ string) (*model.Experience, error) {
			t.Fatal("catalogue must not be queried for an invalid request")
			return nil, nil
		},
	}
	repo := &mockBookingRepo{}

	svc := newTestService(repo, experiences, grantingReserver(&reserveCalls, &releaseCalls), &mockPublisher{})

	req := testRequest()
	req.UserEmail = "not-an-email"

	_, err := svc.Create(context.Background(), req)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if reserveCalls != 0 {
		t.Errorf("expected no reserve calls, got %d", reserveCalls)
	}
}

func TestCreateReservationRejectionSkipsInsert(t *testing.T) {
	reserver := &mockReserver{
		reserveFn: func(_ context.Context, _ string, _ model.SlotKey, quantity int) (*expsvc.Reservation, error) {
			return nil, apperrors.InsufficientCapacity(quantity, 1)
		},
	}
	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) (*model.Booking, error) {
			t.Fatal("insert must not be reached")
			return nil, nil
		},
	}
	publisher := &mockPublisher{}

	svc := newTestService(repo, catalogWith(350), reserver, publisher)

	_, err := svc.Create(context.Background(), testRequest())
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInsufficientCapacity {
		t.Errorf("expected insufficient capacity, got %v", err)
	}
	if len(publisher.confirmed) != 0 {
		t.Error("no event may be published for a rejected booking")
	}
}

func TestCreateCompensatesFailedInsert(t *testing.T) {
	var reserveCalls, releaseCalls int
	var releasedQuantity int

	reserver := grantingReserver(&reserveCalls, &releaseCalls)
	baseRelease := reserver.releaseFn
	reserver.releaseFn = func(ctx context.Context, experienceID string, key model.SlotKey, quantity int) error {
		releasedQuantity = quantity
		return baseRelease(ctx, experienceID, key, quantity)
	}

	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, _ *model.Booking) (*model.Booking, error) {
			return nil, errors.New("write concern timeout")
		},
	}
	publisher := &mockPublisher{}

	svc := newTestService(repo, catalogWith(350), reserver, publisher)

	_, err := svc.Create(context.Background(), testRequest())
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInternal {
		t.Errorf("expected internal error after successful compensation, got %v", err)
	}
	if releaseCalls != 1 {
		t.Fatalf("expected exactly one release call, got %d", releaseCalls)
	}
	if releasedQuantity != 2 {
		t.Errorf("release must undo the reserved quantity, got %d", releasedQuantity)
	}
	if len(publisher.confirmed) != 0 {
		t.Error("no confirmed event may be published for a failed booking")
	}
}

func TestCreateEscalatesCompensationFailure(t *testing.T) {
	var reserveCalls int

	reserver := &mockReserver{
		reserveFn: func(_ context.Context, _ string, _ model.SlotKey, quantity int) (*expsvc.Reservation, error) {
			reserveCalls++
			return &expsvc.Reservation{Quantity: quantity, NewBookedCount: quantity}, nil
		},
		releaseFn: func(_ context.Context, _ string, _ model.SlotKey, _ int) error {
			return errors.New("connection reset")
		},
	}
	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, _ *model.Booking) (*model.Booking, error) {
			return nil, errors.New("write concern timeout")
		},
	}
	publisher := &mockPublisher{}

	svc := newTestService(repo, catalogWith(350), reserver, publisher)

	_, err := svc.Create(context.Background(), testRequest())
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeCompensationFailure {
		t.Errorf("expected compensation failure, got %v", err)
	}
	if len(publisher.compensation) != 1 {
		t.Errorf("expected one compensation failed event, got %d", len(publisher.compensation))
	}
}

func TestGetByIDEmptyID(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, catalogWith(350), &mockReserver{}, &mockPublisher{})

	_, err := svc.GetByID(context.Background(), "")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}
