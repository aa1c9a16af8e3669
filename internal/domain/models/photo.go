package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultWidth  = 1600
	DefaultHeight = 1067

	maxTitleLength = 255
	maxTextLength  = 4000
)

// Photo is the metadata record of a portfolio photo. The last path segment of
// Src is the basename of the blob holding the image bytes.
type Photo struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Src         string    `json:"src" db:"src"`
	Title       string    `json:"title" db:"title"`
	Alt         string    `json:"alt" db:"alt"`
	Width       int       `json:"width" db:"width"`
	Height      int       `json:"height" db:"height"`
	Year        string    `json:"year,omitempty" db:"year"`
	Location    string    `json:"location,omitempty" db:"location"`
	Camera      string    `json:"camera,omitempty" db:"camera"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Likes is aggregated from photo_likes and is not a column of photos.
	Likes int64 `json:"likes"`
}

// PhotoPatch carries a partial metadata update. Nil fields are left untouched.
// Src is deliberately absent: updates never move a photo's blob.
type PhotoPatch struct {
	Title       *string
	Alt         *string
	Width       *int
	Height      *int
	Year        *string
	Location    *string
	Camera      *string
	Description *string
}

// NewPhoto creates a Photo with a fresh id, timestamps and default dimensions
// when the caller does not know them.
func NewPhoto(src, title, alt string, width, height int) *Photo {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}

	now := time.Now().UTC()

	return &Photo{
		ID:        uuid.New(),
		Src:       src,
		Title:     strings.TrimSpace(title),
		Alt:       strings.TrimSpace(alt),
		Width:     width,
		Height:    height,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the fields required before a record may be stored.
func (p *Photo) Validate() error {
	var validationErrors []string

	if strings.TrimSpace(p.Title) == "" {
		validationErrors = append(validationErrors, "title is required")
	}
	if len(p.Title) > maxTitleLength {
		validationErrors = append(validationErrors, fmt.Sprintf("title must be %d characters or less", maxTitleLength))
	}
	if strings.TrimSpace(p.Alt) == "" {
		validationErrors = append(validationErrors, "alt is required")
	}
	if p.Src == "" {
		validationErrors = append(validationErrors, "src is required")
	}
	if p.Width <= 0 || p.Height <= 0 {
		validationErrors = append(validationErrors, "width and height must be positive values")
	}
	if len(p.Description) > maxTextLength {
		validationErrors = append(validationErrors, fmt.Sprintf("description must be %d characters or less", maxTextLength))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// Validate rejects patches that would blank a required field.
func (p PhotoPatch) Validate() error {
	var validationErrors []string

	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		validationErrors = append(validationErrors, "title cannot be empty")
	}
	if p.Alt != nil && strings.TrimSpace(*p.Alt) == "" {
		validationErrors = append(validationErrors, "alt cannot be empty")
	}
	if p.Width != nil && *p.Width <= 0 {
		validationErrors = append(validationErrors, "width must be positive")
	}
	if p.Height != nil && *p.Height <= 0 {
		validationErrors = append(validationErrors, "height must be positive")
	}
	if p.Description != nil && len(*p.Description) > maxTextLength {
		validationErrors = append(validationErrors, fmt.Sprintf("description must be %d characters or less", maxTextLength))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// Empty reports whether the patch changes nothing.
func (p PhotoPatch) Empty() bool {
	return p.Title == nil && p.Alt == nil && p.Width == nil && p.Height == nil &&
		p.Year == nil && p.Location == nil && p.Camera == nil && p.Description == nil
}
