package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	experr "bookit/internal/experiences/errors"
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/logger"
	"bookit/pkg/model"
)

type mockExperienceRepo struct {
	findByIDFn  func(ctx context.Context, id string) (*model.Experience, error)
	findAllFn   func(ctx context.Context, search string, limit int, offset int64) ([]*model.Experience, error)
	countFn     func(ctx context.Context, search string) (int64, error)
	getSlotFn   func(ctx context.Context, experienceID string, key model.SlotKey) (*model.Slot, error)
	incrementFn func(ctx context.Context, experienceID string, key model.SlotKey, expectedBooked, delta int, isAvailable bool) error
	decrementFn func(ctx context.Context, experienceID string, key model.SlotKey, delta int) error
}

func (m *mockExperienceRepo) FindByID(ctx context.Context, id string) (*model.Experience, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockExperienceRepo) FindAll(ctx context.Context, search string, limit int, offset int64) ([]*model.Experience, error) {
	return m.findAllFn(ctx, search, limit, offset)
}

func (m *mockExperienceRepo) Count(ctx context.Context, search string) (int64, error) {
	return m.countFn(ctx, search)
}

func (m *mockExperienceRepo) GetSlot(ctx context.Context, experienceID string, key model.SlotKey) (*model.Slot, error) {
	return m.getSlotFn(ctx, experienceID, key)
}

func (m *mockExperienceRepo) IncrementSlotIfUnchanged(ctx context.Context, experienceID string, key model.SlotKey, expectedBooked, delta int, isAvailable bool) error {
	return m.incrementFn(ctx, experienceID, key, expectedBooked, delta, isAvailable)
}

func (m *mockExperienceRepo) DecrementSlot(ctx context.Context, experienceID string, key model.SlotKey, delta int) error {
	return m.decrementFn(ctx, experienceID, key, delta)
}

func reservationConfig(maxAttempts int) *config.Config {
	return &config.Config{
		ReserveMaxAttempts:  maxAttempts,
		ReserveRetryBackoff: time.Millisecond,
		Log:                 logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
}

func slotKey() model.SlotKey {
	return model.NewSlotKey(time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), "10:00 AM")
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			t.Fatal("store must not be touched for a non-positive quantity")
			return nil, nil
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	for _, quantity := range []int{0, -1} {
		_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), quantity)
		appErr := apperrors.AsAppError(err)
		if appErr.Code != apperrors.CodeInvalidInput {
			t.Errorf("Reserve(quantity=%d): expected invalid input, got %v", quantity, err)
		}
	}
}

func TestReserveUnknownExperience(t *testing.T) {
	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return nil, experr.ErrNotFound
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReserveUnknownSlot(t *testing.T) {
	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return nil, experr.ErrSlotNotFound
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReserveInsufficientCapacity(t *testing.T) {
	var increments int

	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return &model.Slot{Capacity: 5, BookedCount: 2, IsAvailable: true}, nil
		},
		incrementFn: func(_ context.Context, _ string, _ model.SlotKey, _, _ int, _ bool) error {
			increments++
			return nil
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 5)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %v", err)
	}
	if appErr.Details["available"] != 3 || appErr.Details["requested"] != 5 {
		t.Errorf("unexpected capacity details: %v", appErr.Details)
	}
	if increments != 0 {
		t.Errorf("rejected reservation must not write, got %d increments", increments)
	}
}

func TestReserveGrantsAndDerivesAvailability(t *testing.T) {
	var gotExpected, gotDelta int
	var gotAvailable bool

	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return &model.Slot{Capacity: 5, BookedCount: 2, IsAvailable: true}, nil
		},
		incrementFn: func(_ context.Context, _ string, _ model.SlotKey, expectedBooked, delta int, isAvailable bool) error {
			gotExpected, gotDelta, gotAvailable = expectedBooked, delta, isAvailable
			return nil
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	reservation, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotExpected != 2 || gotDelta != 3 {
		t.Errorf("expected guarded increment (2, +3), got (%d, +%d)", gotExpected, gotDelta)
	}
	if gotAvailable {
		t.Error("a full slot must be written as unavailable")
	}
	if reservation.NewBookedCount != 5 {
		t.Errorf("expected new booked count 5, got %d", reservation.NewBookedCount)
	}
	if reservation.IsAvailable {
		t.Error("reservation must report the slot as full")
	}
}

func TestReserveRetriesLostRaces(t *testing.T) {
	bookedCount := 2
	attempts := 0

	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return &model.Slot{Capacity: 10, BookedCount: bookedCount, IsAvailable: true}, nil
		},
		incrementFn: func(_ context.Context, _ string, _ model.SlotKey, _, delta int, _ bool) error {
			attempts++
			if attempts <= 2 {
				// Another writer moved the counter between read and write.
				bookedCount++
				return experr.ErrGuardFailed
			}
			bookedCount += delta
			return nil
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	reservation, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected success on the third attempt, got %d", attempts)
	}
	if reservation.NewBookedCount != 5 {
		t.Errorf("expected booked count 5 after two lost races, got %d", reservation.NewBookedCount)
	}
}

func TestReserveExhaustsRetries(t *testing.T) {
	attempts := 0

	repo := &mockExperienceRepo{
		getSlotFn: func(_ context.Context, _ string, _ model.SlotKey) (*model.Slot, error) {
			return &model.Slot{Capacity: 10, BookedCount: 2, IsAvailable: true}, nil
		},
		incrementFn: func(_ context.Context, _ string, _ model.SlotKey, _, _ int, _ bool) error {
			attempts++
			return experr.ErrGuardFailed
		},
	}
	svc := NewReservationService(repo, reservationConfig(3))

	_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict after exhausted retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestReleaseRestoresCapacity(t *testing.T) {
	var released int

	repo := &mockExperienceRepo{
		decrementFn: func(_ context.Context, _ string, _ model.SlotKey, delta int) error {
			released = delta
			return nil
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	if err := svc.Release(context.Background(), "exp-1", slotKey(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 3 {
		t.Errorf("expected 3 units released, got %d", released)
	}
}

func TestReleaseUnderflowGuard(t *testing.T) {
	repo := &mockExperienceRepo{
		decrementFn: func(_ context.Context, _ string, _ model.SlotKey, _ int) error {
			return experr.ErrGuardFailed
		},
	}
	svc := NewReservationService(repo, reservationConfig(5))

	err := svc.Release(context.Background(), "exp-1", slotKey(), 3)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInternal {
		t.Errorf("expected internal error on underflow, got %v", err)
	}
}

// fakeSlotStore models the store's guarded counter update in memory so
// many goroutines can race through the full reserve loop.
type fakeSlotStore struct {
	mu   sync.Mutex
	slot model.Slot
}

func (f *fakeSlotStore) FindByID(context.Context, string) (*model.Experience, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSlotStore) FindAll(context.Context, string, int, int64) ([]*model.Experience, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSlotStore) Count(context.Context, string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeSlotStore) GetSlot(context.Context, string, model.SlotKey) (*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.slot
	return &snapshot, nil
}

func (f *fakeSlotStore) IncrementSlotIfUnchanged(_ context.Context, _ string, _ model.SlotKey, expectedBooked, delta int, isAvailable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slot.BookedCount != expectedBooked {
		return experr.ErrGuardFailed
	}
	f.slot.BookedCount += delta
	f.slot.IsAvailable = isAvailable
	return nil
}

func (f *fakeSlotStore) DecrementSlot(_ context.Context, _ string, _ model.SlotKey, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slot.BookedCount < delta {
		return experr.ErrGuardFailed
	}
	f.slot.BookedCount -= delta
	f.slot.IsAvailable = true
	return nil
}

func TestReserveNeverOversellsUnderContention(t *testing.T) {
	const capacity = 10
	const workers = 50

	store := &fakeSlotStore{slot: model.Slot{Capacity: capacity, IsAvailable: true}}
	cfg := reservationConfig(workers * 4)
	cfg.ReserveRetryBackoff = 50 * time.Microsecond
	svc := NewReservationService(store, cfg)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	rejected := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case apperrors.AsAppError(err).Code == apperrors.CodeInsufficientCapacity:
				rejected++
			default:
				t.Errorf("unexpected terminal error: %v", err)
			}
		}()
	}
	wg.Wait()

	if granted != capacity {
		t.Errorf("expected exactly %d grants, got %d (%d rejected)", capacity, granted, rejected)
	}
	if store.slot.BookedCount != capacity {
		t.Errorf("expected booked count %d, got %d", capacity, store.slot.BookedCount)
	}
	if store.slot.IsAvailable {
		t.Error("a fully booked slot must be unavailable")
	}
}

func TestReserveLastUnitSingleWinner(t *testing.T) {
	store := &fakeSlotStore{slot: model.Slot{Capacity: 2, BookedCount: 1, IsAvailable: true}}
	svc := NewReservationService(store, reservationConfig(20))

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), "exp-1", slotKey(), 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if apperrors.AsAppError(err).Code == apperrors.CodeInsufficientCapacity {
			losses++
		}
	}

	if wins != 1 || losses != 1 {
		t.Errorf("expected one winner and one loser for the last unit, got %d wins / %d losses", wins, losses)
	}
	if store.slot.BookedCount != 2 {
		t.Errorf("expected booked count 2, got %d", store.slot.BookedCount)
	}
}
