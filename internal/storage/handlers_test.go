package storage

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func TestStorageAttachHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	url := "https://cdn.test/stamps/" + stampID + "/file.png"
	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(url, stampID, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", url, KindStampImage).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	app := fiber.New()
	RegisterRoutes(app.Group("/storage"), NewService(mock, "https://cdn.test"), asUser("user-1"))

	req := httptest.NewRequest(http.MethodPost, "/storage/stamps/"+stampID+"/image", bytes.NewReader([]byte(`{"fileName":"file.png"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("attach status: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["imageUrl"] != url {
		t.Fatalf("unexpected body: %+v %v", body, err)
	}
	if len(body) != 1 {
		t.Fatalf("expected only imageUrl in body, got %+v", body)
	}
}

func TestStorageAttachHandlerErrors(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(pgxmock.AnyArg(), stampID, "user-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE stamps SET image_url`).
		WithArgs(pgxmock.AnyArg(), stampID, "user-2").
		WillReturnError(errSave)

	app := fiber.New()
	RegisterRoutes(app.Group("/storage"), NewService(mock, "https://cdn.test"), asUser("user-2"))

	cases := []struct {
		body   string
		status int
	}{
		{`{}`, http.StatusBadRequest},
		{`{"fileName":".."}`, http.StatusBadRequest},
		{`{"fileName":"a.png"}`, http.StatusForbidden},
		{`{"fileName":"a.png"}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/storage/stamps/"+stampID+"/image", bytes.NewReader([]byte(tc.body)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil || resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.body, tc.status, resp.StatusCode, err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/storage/stamps/not-a-uuid/image", bytes.NewReader([]byte(`{"fileName":"a.png"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("malformed id: expected 404, got %d (%v)", resp.StatusCode, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
