package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

// SeedRoom inserts a room directly, mirroring what the migration seed
// does. Rooms have no write API. Returns the room ID as a hex string.
func (m *MongoHelper) SeedRoom(t *testing.T, name string, capacity int, available bool) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := primitive.NewObjectID()
	now := time.Now().UTC()
	doc := bson.M{
		"_id":        id,
		"name":       name,
		"location":   "integration floor",
		"capacity":   capacity,
		"equipment":  []string{"whiteboard"},
		"available":  available,
		"created_at": now,
		"updated_at": now,
	}

	if _, err := m.Database.Collection(RoomsCollection).InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to seed room %s: %v", name, err)
	}
	return id.Hex()
}

// SeedHoliday marks a YYYY-MM-DD day as non-bookable.
func (m *MongoHelper) SeedHoliday(t *testing.T, date, name string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := bson.M{
		"_id":  primitive.NewObjectID(),
		"date": date,
		"name": name,
	}

	if _, err := m.Database.Collection(HolidaysCollection).InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to seed holiday %s: %v", date, err)
	}
}

// NextMonday returns the given wall time on the next Monday strictly in
// the future, in UTC. Booking on a weekday keeps the default working-day
// and opening-hours rules out of the way.
func NextMonday(hour, min int) time.Time {
	now := time.Now().UTC()
	daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	day := now.AddDate(0, 0, daysAhead)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

// BookingBuilder assembles request payloads for the booking API. The
// default is a one hour meeting next Monday morning, which passes every
// default booking rule.
type BookingBuilder struct {
	booking model.Booking
}

func NewBookingBuilder(roomID string) *BookingBuilder {
	start := NextMonday(9, 0)
	return &BookingBuilder{
		booking: model.Booking{
			RoomID:    roomID,
			Title:     "Sprint planning",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		},
	}
}

func (b *BookingBuilder) WithTitle(title string) *BookingBuilder {
	b.booking.Title = title
	return b
}

func (b *BookingBuilder) WithDescription(description string) *BookingBuilder {
	b.booking.Description = description
	return b
}

func (b *BookingBuilder) WithTimes(start, end time.Time) *BookingBuilder {
	b.booking.StartTime = start
	b.booking.EndTime = end
	return b
}

func (b *BookingBuilder) Build() model.Booking {
	return b.booking
}
