package repository

import (
	"context"
	"fmt"
	"time"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/infrastructure/repository/entity"
	"revlens-dashboard-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository implements SessionRepository using MongoDB.
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository.
func NewMongoSessionRepository(db *mongo.Database) ports.SessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("sessions"),
	}
}

// Save stores or replaces a session keyed by its token.
func (r *MongoSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	doc := entity.MongoSessionDocFromDomain(session)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Unique index on token; sessions expire server-side as well.
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	filter := bson.M{"token": doc.Token}
	update := bson.M{"$set": doc}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its bearer token.
func (r *MongoSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	filter := bson.M{"token": token}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return doc.ToDomain(), nil
}

// DeleteByToken removes the session for a token. Re-deleting an already
// cleared token is a no-op.
func (r *MongoSessionRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	filter := bson.M{"token": token}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return result.DeletedCount > 0, nil
}
