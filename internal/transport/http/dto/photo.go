package dto

import (
	"strings"

	"portfolio/internal/domain/models"
)

// CreatePhotoRequest registers metadata for a blob that is already stored.
type CreatePhotoRequest struct {
	Src         string `json:"src" validate:"required"`
	Title       string `json:"title" validate:"max=255"`
	Alt         string `json:"alt"`
	Width       int    `json:"width" validate:"gte=0"`
	Height      int    `json:"height" validate:"gte=0"`
	Year        string `json:"year" validate:"max=16"`
	Location    string `json:"location" validate:"max=255"`
	Camera      string `json:"camera" validate:"max=255"`
	Description string `json:"description" validate:"max=4000"`
}

// UpdatePhotoRequest changes metadata only. Omitted fields are kept.
type UpdatePhotoRequest struct {
	ID          string  `json:"id" validate:"required,uuid"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Alt         *string `json:"alt,omitempty"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	Year        *string `json:"year,omitempty" validate:"omitempty,max=16"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Camera      *string `json:"camera,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
}

func (r UpdatePhotoRequest) Patch() models.PhotoPatch {
	return models.PhotoPatch{
		Title:       r.Title,
		Alt:         r.Alt,
		Width:       r.Width,
		Height:      r.Height,
		Year:        r.Year,
		Location:    r.Location,
		Camera:      r.Camera,
		Description: r.Description,
	}
}

type DeletePhotoResponse struct {
	ID string `json:"id"`
}

type BlobResponse struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified,omitempty"`
}

// IsMultipart reports whether contentType announces a multipart form.
func IsMultipart(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data")
}
