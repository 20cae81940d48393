package domain

import "time"

// User is the cached display object for the authenticated account. It is a
// session convenience only, never a system of record.
type User struct {
	ID    string `json:"id" bson:"id"`
	Email string `json:"email" bson:"email"`
	Name  string `json:"name" bson:"name"`
}

// Session holds the bearer token for the analytics backend plus the cached
// user display object. Written once at login, cleared on any 401.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Token     string    `json:"token" bson:"token"`
	User      User      `json:"user" bson:"user"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
