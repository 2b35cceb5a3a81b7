package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sirsanndy/room-booking-sub001/pkg/sanitizer"
)

func seedRooms(now time.Time) []any {
	room := func(name, location string, capacity int, available bool, equipment ...string) bson.M {
		doc := bson.M{
			"name":       sanitizer.NormalizeRoomName(name),
			"location":   sanitizer.TrimAndNormalize(location),
			"capacity":   capacity,
			"available":  available,
			"created_at": now,
			"updated_at": now,
		}
		if tags := sanitizer.NormalizeEquipment(equipment); len(tags) > 0 {
			doc["equipment"] = tags
		}
		return doc
	}

	return []any{
		room("Atlas 4.1", "4th floor east", 8, true, "projector", "whiteboard"),
		room("Borealis 2.0", "2nd floor north", 14, true, "projector", "video-conference"),
		room("Cumulus 1.3", "1st floor west", 4, true, "whiteboard"),
		room("Dune 3.2", "3rd floor south", 10, false, "video-conference"),
		room("Echo 1.1", "1st floor east", 2, true),
		room("Fjord 5.0", "5th floor", 20, true, "projector", "video-conference", "whiteboard"),
	}
}

func seedHolidays(firstYear int) []any {
	fixed := []struct {
		monthDay string
		name     string
	}{
		{"01-01", "New Year's Day"},
		{"05-01", "Labour Day"},
		{"12-25", "Christmas Day"},
		{"12-26", "Boxing Day"},
	}

	var docs []any
	for year := firstYear; year <= firstYear+1; year++ {
		for _, h := range fixed {
			docs = append(docs, bson.M{
				"date": fmt.Sprintf("%04d-%s", year, h.monthDay),
				"name": h.name,
			})
		}
	}
	return docs
}

// RunSeed populates the room inventory and the holiday calendar. It only
// writes into empty collections, so re-running it is safe.
func RunSeed(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	now := time.Now().UTC().Truncate(time.Millisecond)

	seeds := map[string][]any{
		"Rooms":    seedRooms(now),
		"Holidays": seedHolidays(now.Year()),
	}

	for name, docs := range seeds {
		count, err := db.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		if count > 0 {
			fmt.Printf("ℹ️ Collection %s already has %d documents — skipping seed\n", name, count)
			continue
		}

		if _, err := db.Collection(name).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to seed %s: %w", name, err)
		}
		fmt.Printf("🌱 Seeded %s with %d documents\n", name, len(docs))
	}

	return nil
}
