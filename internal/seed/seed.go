package seed

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	bookingrepo "bookit/internal/bookings/repository"
	exprepo "bookit/internal/experiences/repository"
	"bookit/pkg/model"
)

var (
	ExperiencesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{
			{Key: "slots.date", Value: 1},
			{Key: "slots.time", Value: 1},
		}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "experience_id", Value: 1},
			{Key: "slot_date", Value: 1},
			{Key: "slot_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// demoExperiences is the demo catalogue, including one already sold-out
// slot so the rejection path can be exercised out of the box.
func demoExperiences() []model.Experience {
	return []model.Experience{
		{
			Title:       "Gentleman's High-Seas Sailing Lesson",
			Description: "Master the nautical arts aboard a pristine yacht. Learn knot-tying and navigation. A truly distinguished experience.",
			Price:       350.00,
			Duration:    "4 hours",
			Image:       "https://images.unsplash.com/photo-1549488344-f89a80e1a14c",
			Location:    "Marina del Rey, CA",
			Slots: []model.Slot{
				{Date: day(2025, time.November, 15), Time: "10:00 AM", Capacity: 5, BookedCount: 0, IsAvailable: true},
				{Date: day(2025, time.November, 15), Time: "2:00 PM", Capacity: 5, BookedCount: 2, IsAvailable: true},
				{Date: day(2025, time.November, 16), Time: "10:00 AM", Capacity: 5, BookedCount: 5, IsAvailable: false},
				{Date: day(2025, time.November, 17), Time: "10:00 AM", Capacity: 5, BookedCount: 0, IsAvailable: true},
			},
		},
		{
			Title:       "Art of Fine Cigar and Whisky Pairing",
			Description: "An evening dedicated to refined tastes. Sample vintage single malts and rare Cuban cigars under the guidance of a sommelier.",
			Price:       180.00,
			Duration:    "2 hours",
			Image:       "https://images.unsplash.com/photo-1628173429813-f47053ccbe77",
			Location:    "Edinburgh, Scotland",
			Slots: []model.Slot{
				{Date: day(2025, time.November, 20), Time: "7:00 PM", Capacity: 10, BookedCount: 3, IsAvailable: true},
				{Date: day(2025, time.November, 21), Time: "7:00 PM", Capacity: 10, BookedCount: 0, IsAvailable: true},
			},
		},
		{
			Title:       "Vintage Car Restoration Workshop",
			Description: "Spend a day with master mechanics learning the delicate touch required to restore classic automobiles to their former glory.",
			Price:       499.00,
			Duration:    "Full Day",
			Image:       "https://images.unsplash.com/photo-1549926442-53535914614a",
			Location:    "Stuttgart, Germany",
			Slots: []model.Slot{
				{Date: day(2025, time.December, 5), Time: "9:00 AM", Capacity: 8, BookedCount: 1, IsAvailable: true},
				{Date: day(2025, time.December, 6), Time: "9:00 AM", Capacity: 8, BookedCount: 0, IsAvailable: true},
			},
		},
	}
}

// Run replaces the demo catalogue and ensures the indexes both
// collections rely on.
func Run(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("Seeding database: %s\n", dbName)

	experiences := db.Collection(exprepo.CollectionName)
	if _, err := experiences.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear experiences: %w", err)
	}

	docs := demoExperiences()
	payload := make([]interface{}, len(docs))
	for i := range docs {
		payload[i] = docs[i]
	}
	if _, err := experiences.InsertMany(ctx, payload); err != nil {
		return fmt.Errorf("failed to insert experiences: %w", err)
	}
	fmt.Printf("Inserted %d experiences\n", len(docs))

	if err := ensureIndexes(ctx, db, exprepo.CollectionName, ExperiencesIndexes); err != nil {
		return fmt.Errorf("failed to ensure experience indexes: %w", err)
	}
	if err := ensureIndexes(ctx, db, bookingrepo.CollectionName, BookingsIndexes); err != nil {
		return fmt.Errorf("failed to ensure booking indexes: %w", err)
	}

	fmt.Println("Seed completed successfully.")
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}
