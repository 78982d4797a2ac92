package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	experr "bookit/internal/experiences/errors"
	"bookit/pkg/config"
	"bookit/pkg/model"
)

const (
	CollectionName = "Experiences"
)

type ExperienceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Experience, error)
	FindAll(ctx context.Context, search string, limit int, offset int64) ([]*model.Experience, error)
	Count(ctx context.Context, search string) (int64, error)
	GetSlot(ctx context.Context, experienceID string, key model.SlotKey) (*model.Slot, error)
	IncrementSlotIfUnchanged(ctx context.Context, experienceID string, key model.SlotKey, expectedBooked, delta int, isAvailable bool) error
	DecrementSlot(ctx context.Context, experienceID string, key model.SlotKey, delta int) error
}

type mongoExperienceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoExperienceRepository(cfg *config.Config) ExperienceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoExperienceRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoExperienceRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoExperienceRepository) FindByID(ctx context.Context, id string) (*model.Experience, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", experr.ErrInvalidID, id)
	}

	var experience model.Experience
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&experience)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, experr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find experience: %w", err)
	}

	return &experience, nil
}

// searchFilter builds a case-insensitive literal-text filter across the
// catalogue's searchable fields.
func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	return bson.M{
		"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"location": pattern},
		},
	}
}

func (r *mongoExperienceRepository) FindAll(ctx context.Context, search string, limit int, offset int64) ([]*model.Experience, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, searchFilter(search), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find experiences: %w", err)
	}
	defer cursor.Close(ctx)

	var experiences []*model.Experience
	if err = cursor.All(ctx, &experiences); err != nil {
		return nil, fmt.Errorf("failed to decode experiences: %w", err)
	}

	return experiences, nil
}

func (r *mongoExperienceRepository) Count(ctx context.Context, search string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, searchFilter(search))
	if err != nil {
		return 0, fmt.Errorf("failed to count experiences: %w", err)
	}

	return count, nil
}

// GetSlot reads an advisory snapshot of the slot's counters. The snapshot
// is never the arbiter of capacity; IncrementSlotIfUnchanged is.
func (r *mongoExperienceRepository) GetSlot(ctx context.Context, experienceID string, key model.SlotKey) (*model.Slot, error) {
	experience, err := r.FindByID(ctx, experienceID)
	if err != nil {
		return nil, err
	}

	for i := range experience.Slots {
		if experience.Slots[i].Matches(key) {
			slot := experience.Slots[i]
			return &slot, nil
		}
	}

	return nil, experr.ErrSlotNotFound
}

// IncrementSlotIfUnchanged performs the compare-and-swap on the slot's
// counter: the embedded slot is addressed by (date, time) plus the exact
// booked count observed by the caller, and the counter increment and the
// derived availability flag are applied in one atomic document update. If
// a concurrent reservation moved the counter first, the array filter
// matches nothing and the call reports ErrGuardFailed.
func (r *mongoExperienceRepository) IncrementSlotIfUnchanged(ctx context.Context, experienceID string, key model.SlotKey, expectedBooked, delta int, isAvailable bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(experienceID)
	if err != nil {
		return fmt.Errorf("%w: %s", experr.ErrInvalidID, experienceID)
	}

	update := bson.M{
		"$inc": bson.M{"slots.$[s].booked_count": delta},
		"$set": bson.M{"slots.$[s].is_available": isAvailable},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"s.date":         key.Date,
			"s.time":         key.Time,
			"s.booked_count": expectedBooked,
		}},
	})

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to increment slot counter: %w", err)
	}

	if result.MatchedCount == 0 {
		return experr.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return experr.ErrGuardFailed
	}

	return nil
}

// DecrementSlot is the compensation write: it returns delta units to the
// slot under an underflow guard and marks the slot available again in the
// same atomic update. Used only by the booking ledger's rollback path.
func (r *mongoExperienceRepository) DecrementSlot(ctx context.Context, experienceID string, key model.SlotKey, delta int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(experienceID)
	if err != nil {
		return fmt.Errorf("%w: %s", experr.ErrInvalidID, experienceID)
	}

	update := bson.M{
		"$inc": bson.M{"slots.$[s].booked_count": -delta},
		"$set": bson.M{"slots.$[s].is_available": true},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"s.date":         key.Date,
			"s.time":         key.Time,
			"s.booked_count": bson.M{"$gte": delta},
		}},
	})

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to decrement slot counter: %w", err)
	}

	if result.MatchedCount == 0 {
		return experr.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return experr.ErrGuardFailed
	}

	return nil
}
