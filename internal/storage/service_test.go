package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

func TestSaveObject(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", "https://cdn.test/file", KindStampImage).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock, "https://cdn.test")
	id, err := svc.SaveObject(context.Background(), "user-1", "https://cdn.test/file", KindStampImage)
	if err != nil {
		t.Fatalf("save object: %v", err)
	}
	if id == "" {
		t.Fatalf("expected id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestObjectURL(t *testing.T) {
	svc := NewService(nil, "https://cdn.test/")
	url, err := svc.ObjectURL(stampID, "../../etc/monas.jpg")
	if err != nil || url != "https://cdn.test/stamps/"+stampID+"/monas.jpg" {
		t.Fatalf("unexpected url %q: %v", url, err)
	}
	for _, bad := range []string{"", "  ", "..", "/"} {
		if _, err := svc.ObjectURL(stampID, bad); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("%q: expected invalid file name", bad)
		}
	}
}

func TestAttachImage(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	url := "https://cdn.test/stamps/" + stampID + "/monas.jpg"
	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(url, stampID, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", url, KindStampImage).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := NewService(mock, "https://cdn.test").AttachImage(context.Background(), stampID, "user-1", "monas.jpg")
	if err != nil || got != url {
		t.Fatalf("attach image: %q %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAttachImageNotOwner(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(pgxmock.AnyArg(), stampID, "user-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err = NewService(mock, "https://cdn.test").AttachImage(context.Background(), stampID, "user-2", "x.jpg")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}

func TestAttachImageSaveError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(pgxmock.AnyArg(), stampID, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), KindStampImage).
		WillReturnError(errSave)

	if _, err := NewService(mock, "https://cdn.test").AttachImage(context.Background(), stampID, "user-1", "x.jpg"); err == nil {
		t.Fatalf("expected error")
	}
}

var errSave = errors.New("save error")

const stampID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

func TestAttachImageMalformedStampID(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	_, err = NewService(mock, "https://cdn.test").AttachImage(context.Background(), "stamp-1", "user-1", "x.jpg")
	if !errors.Is(err, ErrStampNotFound) {
		t.Fatalf("expected stamp not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}
