package models

import (
	"time"

	"github.com/google/uuid"
)

const AnonymousUserName = "Anonymous"

// Like records one voter's like of a photo. VoterID is the admin user id for a
// signed-in admin and the session visitor id for anonymous visitors.
type Like struct {
	PhotoID   uuid.UUID `json:"photoId" db:"photo_id"`
	VoterID   string    `json:"-" db:"voter_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PhotoID   uuid.UUID `json:"photoId" db:"photo_id"`
	Text      string    `json:"text" db:"text"`
	UserName  string    `json:"userName" db:"user_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
