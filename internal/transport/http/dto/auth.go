package dto

import (
	"time"

	"portfolio/internal/domain/models"
)

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
}
