package stamp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"backend-stizi/internal/db"
	"backend-stizi/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	DefaultRadiusM = 5000.0
	MaxRadiusM     = 50000.0
)

var (
	ErrInvalidCode      = errors.New("Invalid code")
	ErrAlreadyCollected = errors.New("Already collected")
	ErrNotFound         = errors.New("stamp not found")
)

// Publisher fans collection events out to live subscribers.
type Publisher interface {
	Broadcast(topic string, payload []byte)
}

type Service struct {
	db  db.Querier
	pub Publisher
	now func() time.Time
}

func NewService(db db.Querier, pub Publisher) *Service {
	return &Service{db: db, pub: pub, now: time.Now}
}

const selectStamp = `
		SELECT s.id, s.name, s.description, ST_Y(s.location::geometry), ST_X(s.location::geometry),
		       s.qr_code, COALESCE(s.image_url, ''), s.created_by, s.created_at,
		       ARRAY(SELECT sc.user_id::text FROM stamp_collections sc WHERE sc.stamp_id = s.id ORDER BY sc.collected_at)
		FROM stamps s`

// scanStamp reads the selectStamp columns followed by any extra columns.
func scanStamp(row pgx.Row, extra ...any) (Stamp, error) {
	var (
		st       Stamp
		lat, lng float64
	)
	dest := append([]any{&st.ID, &st.Name, &st.Description, &lat, &lng, &st.QRCode, &st.ImageURL, &st.CreatedBy, &st.CreatedAt, &st.CollectedBy}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Stamp{}, err
	}
	st.Location = geo.NewPoint(geo.Coordinate{Lat: lat, Lng: lng})
	if st.CollectedBy == nil {
		st.CollectedBy = []string{}
	}
	return st, nil
}

func collectRows(rows pgx.Rows) ([]Stamp, error) {
	defer rows.Close()
	stamps := []Stamp{}
	for rows.Next() {
		st, err := scanStamp(rows)
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, st)
	}
	return stamps, rows.Err()
}

func NewQRCode() string {
	return "STZ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Stamp, error) {
	loc := geo.Coordinate{Lat: in.Latitude, Lng: in.Longitude}
	if strings.TrimSpace(in.Name) == "" {
		return Stamp{}, errors.New("name required")
	}
	if !loc.Valid() {
		return Stamp{}, errors.New("latitude or longitude out of range")
	}

	st := Stamp{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Location:    geo.NewPoint(loc),
		QRCode:      NewQRCode(),
		CreatedBy:   userID,
		CollectedBy: []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO stamps (id, name, description, location, qr_code, created_by)
		VALUES ($1,$2,$3, ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography, $6, $7)
		RETURNING created_at
	`, st.ID, st.Name, st.Description, loc.Lng, loc.Lat, st.QRCode, st.CreatedBy)
	if err := row.Scan(&st.CreatedAt); err != nil {
		return Stamp{}, err
	}
	return st, nil
}

func (s *Service) Get(ctx context.Context, id string) (Stamp, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Stamp{}, ErrNotFound
	}
	st, err := scanStamp(s.db.QueryRow(ctx, selectStamp+` WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Stamp{}, ErrNotFound
	}
	return st, err
}

// Nearby lists stamps within radiusM meters of center, closest first.
func (s *Service) Nearby(ctx context.Context, center geo.Coordinate, radiusM float64) ([]Stamp, error) {
	if !center.Valid() {
		return nil, errors.New("latitude or longitude out of range")
	}
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	if radiusM > MaxRadiusM {
		radiusM = MaxRadiusM
	}

	rows, err := s.db.Query(ctx, selectStamp+`
		WHERE ST_DWithin(s.location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY ST_Distance(s.location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography)
	`, center.Lng, center.Lat, radiusM)
	if err != nil {
		return nil, err
	}
	stamps, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	for i := range stamps {
		d := geo.DistanceM(center, stamps[i].Location.Coordinate())
		stamps[i].DistanceM = &d
	}
	return stamps, nil
}

// Mine lists the stamps userID has collected in collection order.
func (s *Service) Mine(ctx context.Context, userID string) ([]Stamp, error) {
	rows, err := s.db.Query(ctx, selectStamp+`
		JOIN stamp_collections mine ON mine.stamp_id = s.id AND mine.user_id = $1
		ORDER BY mine.collected_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// Collect records that userID holds the stamp identified by code. Each
// user/stamp pair is recorded at most once; repeats yield ErrAlreadyCollected.
func (s *Service) Collect(ctx context.Context, userID, code string) (Stamp, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Stamp{}, ErrInvalidCode
	}

	// Rows inserted by ins are not visible to the outer select, so the new
	// collector is appended explicitly.
	var inserted bool
	st, err := scanStamp(s.db.QueryRow(ctx, `
		WITH target AS (
			SELECT id FROM stamps WHERE qr_code = $1
		), ins AS (
			INSERT INTO stamp_collections (stamp_id, user_id)
			SELECT id, $2 FROM target
			ON CONFLICT (stamp_id, user_id) DO NOTHING
			RETURNING stamp_id, user_id
		)
		SELECT s.id, s.name, s.description, ST_Y(s.location::geometry), ST_X(s.location::geometry),
		       s.qr_code, COALESCE(s.image_url, ''), s.created_by, s.created_at,
		       ARRAY(SELECT sc.user_id::text FROM stamp_collections sc WHERE sc.stamp_id = s.id ORDER BY sc.collected_at)
		         || ARRAY(SELECT ins.user_id::text FROM ins),
		       EXISTS (SELECT 1 FROM ins)
		FROM stamps s JOIN target ON target.id = s.id
	`, code, userID), &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stamp{}, ErrInvalidCode
	}
	if err != nil {
		return Stamp{}, err
	}
	if !inserted {
		return Stamp{}, ErrAlreadyCollected
	}

	s.publish(CollectedEvent{StampID: st.ID, UserID: userID, CollectedAt: s.now().UTC()})
	return st, nil
}

func (s *Service) publish(ev CollectedEvent) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.pub.Broadcast(ev.StampID, payload)
}
