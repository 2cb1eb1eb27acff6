package collect

import (
	"time"

	"backend-stizi/internal/shared/geo"
)

// Stamp is the client-side projection of a stamp record owned by the server.
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
}

func (s Stamp) Coordinate() geo.Coordinate {
	return s.Location.Coordinate()
}

func (s Stamp) CollectedByUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range s.CollectedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// withCollector returns a copy of s whose collectedBy includes userID once.
func (s Stamp) withCollector(userID string) Stamp {
	out := s.clone()
	if userID == "" || out.CollectedByUser(userID) {
		return out
	}
	out.CollectedBy = append(out.CollectedBy, userID)
	return out
}

func (s Stamp) clone() Stamp {
	out := s
	out.CollectedBy = dedupe(s.CollectedBy)
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NewStamp is what a user supplies when placing a stamp.
type NewStamp struct {
	Name        string
	Description string
	Location    geo.Coordinate
}

// CollectionAttempt describes one user-initiated collect action. It lives only
// until the attempt resolves.
type CollectionAttempt struct {
	UserID    string
	Code      string
	Location  *geo.Coordinate
	Attempted time.Time
}
