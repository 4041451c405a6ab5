// Package apitest holds helpers shared by the HTTP handler tests.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

// Envelope mirrors the response body with a raw data block so tests can
// decode it into whatever shape they expect.
type Envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Code       string              `json:"code"`
	Error      string              `json:"error"`
	Errors     map[string][]string `json:"errors"`
	Data       json.RawMessage     `json:"data"`
	Pagination *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	} `json:"pagination"`
}

// InjectAuth puts the lawyer ID where auth.MustUserID looks for it, so
// handler tests can skip real JWTs.
func InjectAuth(lawyerID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", lawyerID)
		c.Locals("email", "lawyer@test.local")
		return c.Next()
	}
}

// Do sends a JSON request (body may be nil) and decodes the envelope.
func Do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, Envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return Send(t, app, req)
}

// Send runs a prepared request through the app and decodes the envelope.
func Send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, Envelope) {
	t.Helper()

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, env
}

// DecodeData unmarshals the envelope's data block into dst.
func DecodeData(t *testing.T, env Envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

// SeedLawyer inserts an active lawyer with a throwaway password hash.
func SeedLawyer(t *testing.T, pool *database.Pool, name string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO lawyers (id, name, email, phone, country, work_area, license_no, specialties, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, '1', 'SA', 'Riyadh', ?, '[]', 'x', ?, ?, ?)`,
		id, name, id+"@law.test", "LIC-"+id[:8], true, now, now)
	if err != nil {
		t.Fatalf("seed lawyer: %v", err)
	}
	return id
}

// SeedClient inserts an active client and returns its ID.
func SeedClient(t *testing.T, pool *database.Pool, name, email string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO clients (id, name, email, phone, notes, status, created_at, updated_at)
		 VALUES (?, ?, ?, '0500000000', '', 'ACTIVE', ?, ?)`,
		id, name, email, now, now)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return id
}

// SeedCase inserts a case for clientID owned by lawyerID.
func SeedCase(t *testing.T, pool *database.Pool, lawyerID, clientID, number string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO cases (id, case_number, title, case_type, status, client_id, lawyer_id, description, start_date, notes, created_at, updated_at)
		 VALUES (?, ?, 'Seeded case', 'CIVIL', 'OPEN', ?, ?, '', '2025-01-01', '', ?, ?)`,
		id, number, clientID, lawyerID, now, now)
	if err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return id
}
