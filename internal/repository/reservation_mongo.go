package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/table-booking/internal/model"
)

// MongoReservationStore persists reservations as documents in the
// "reservations" collection.  Single-document writes are atomic, which is
// all the admission path relies on.
type MongoReservationStore struct {
	collection *mongo.Collection
}

// NewMongoReservationStore binds the store to db.reservations.
func NewMongoReservationStore(db *mongo.Database) *MongoReservationStore {
	return &MongoReservationStore{
		collection: db.Collection("reservations"),
	}
}

// EnsureIndexes creates the (date, status) index used by listings and by the
// capacity ledger's per-day query.
func (r *MongoReservationStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("cannot create reservation indexes: %w", err)
	}
	return nil
}

func (r *MongoReservationStore) Find(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error) {
	filter := bson.M{}
	if f.Date != nil {
		start, end := f.dayRange()
		filter["date"] = bson.M{"$gte": start, "$lt": end}
	}
	switch {
	case f.Status != "":
		filter["status"] = f.Status
	case f.ExcludeStatus != "":
		filter["status"] = bson.M{"$ne": f.ExcludeStatus}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*model.Reservation{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode reservations: %w", err)
	}
	return result, nil
}

func (r *MongoReservationStore) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cannot get reservation: %w", err)
	}
	return &reservation, nil
}

func (r *MongoReservationStore) Insert(ctx context.Context, reservation *model.Reservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation is nil")
	}
	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		return fmt.Errorf("cannot create reservation: %w", err)
	}
	return nil
}

// UpdateByID replaces the stored document and returns it as written.
func (r *MongoReservationStore) UpdateByID(ctx context.Context, id string, reservation *model.Reservation) (*model.Reservation, error) {
	if reservation == nil {
		return nil, fmt.Errorf("reservation is nil")
	}
	doc := reservation.Clone()
	doc.ID = id

	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var updated model.Reservation
	err := r.collection.FindOneAndReplace(ctx, bson.M{"_id": id}, doc, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cannot update reservation: %w", err)
	}
	return &updated, nil
}

// Ping verifies the client can reach the primary.
func (r *MongoReservationStore) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}
