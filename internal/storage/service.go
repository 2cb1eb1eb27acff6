package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"backend-stizi/internal/db"

	"github.com/google/uuid"
)

const KindStampImage = "stamp_image"

var (
	ErrNotOwner        = errors.New("stamp not found or not owned by caller")
	ErrStampNotFound   = errors.New("stamp not found")
	ErrInvalidFileName = errors.New("invalid file name")
)

type Service struct {
	db      db.Querier
	baseURL string
}

func NewService(db db.Querier, baseURL string) *Service {
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ObjectURL is where fileName for stampID is served from.
func (s *Service) ObjectURL(stampID, fileName string) (string, error) {
	name := path.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", ErrInvalidFileName
	}
	return s.baseURL + "/stamps/" + stampID + "/" + name, nil
}

// AttachImage points the stamp's imageUrl at fileName. Only the stamp's
// creator may change it.
func (s *Service) AttachImage(ctx context.Context, stampID, userID, fileName string) (string, error) {
	if _, err := uuid.Parse(stampID); err != nil {
		return "", ErrStampNotFound
	}
	url, err := s.ObjectURL(stampID, fileName)
	if err != nil {
		return "", err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE stamps SET image_url = $1
		WHERE id = $2 AND created_by = $3
	`, url, stampID, userID)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotOwner
	}
	if _, err := s.SaveObject(ctx, userID, url, KindStampImage); err != nil {
		return "", err
	}
	return url, nil
}
