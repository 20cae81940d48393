package entity

import (
	"time"

	"revlens-dashboard-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSessionDoc represents a dashboard session in MongoDB.
type MongoSessionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    string             `bson:"userId"`
	UserEmail string             `bson:"userEmail"`
	UserName  string             `bson:"userName"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	return &domain.Session{
		ID:    d.ID.Hex(),
		Token: d.Token,
		User: domain.User{
			ID:    d.UserID,
			Email: d.UserEmail,
			Name:  d.UserName,
		},
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

// MongoSessionDocFromDomain converts a domain entity to a MongoDB document.
func MongoSessionDocFromDomain(session *domain.Session) *MongoSessionDoc {
	doc := &MongoSessionDoc{
		Token:     session.Token,
		UserID:    session.User.ID,
		UserEmail: session.User.Email,
		UserName:  session.User.Name,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}

	if session.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(session.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
