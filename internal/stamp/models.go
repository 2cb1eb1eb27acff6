package stamp

import (
	"time"

	"backend-stizi/internal/shared/geo"
)

type Stamp struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    geo.Point `json:"location"`
	QRCode      string    `json:"qrCode"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CollectedBy []string  `json:"collectedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	DistanceM   *float64  `json:"distance,omitempty"`
}

type CreateInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// CollectedEvent is published whenever a user collects a stamp.
type CollectedEvent struct {
	StampID     string    `json:"stampId"`
	UserID      string    `json:"userId"`
	CollectedAt time.Time `json:"collectedAt"`
}
