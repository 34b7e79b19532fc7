package profile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		collection: client.Database(database).Collection(collection),
	}
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}
	return &p, nil
}

func (s *MongoStore) Update(ctx context.Context, p *Profile) (*Profile, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("profile needs an id before updating")
	}

	opts := options.FindOneAndReplace().
		SetReturnDocument(options.After)

	var updated Profile
	err := s.collection.FindOneAndReplace(ctx, bson.M{"_id": p.ID}, p, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("profile %s: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile %s: %w", p.ID, err)
	}
	return &updated, nil
}
