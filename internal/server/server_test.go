package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/legal-office-backend/internal/apitest"
	"github.com/aldoetobex/legal-office-backend/internal/cache"
	"github.com/aldoetobex/legal-office-backend/internal/config"
	"github.com/aldoetobex/legal-office-backend/internal/storage"
	"github.com/aldoetobex/legal-office-backend/pkg/database/databasetest"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	store, err := storage.NewLocal(root, "/uploads")
	require.NoError(t, err)

	return New(Deps{
		Config: &config.Config{
			Env:            "test",
			JWTSecret:      "server-test-secret",
			UploadMaxBytes: 1 << 20,
			CacheTTL:       time.Minute,
		},
		Pool:      databasetest.New(t),
		Cache:     cache.Noop{},
		Store:     store,
		StaticDir: root,
	})
}

func authed(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, env := apitest.Do(t, app, "POST", "/api/auth/register", map[string]any{
		"name": "Sara Ahmed", "email": "sara@law.test", "phone": "0500000000", "country": "SA",
		"workArea": "Riyadh", "licenseNo": "LIC-1001", "specialties": []string{"family"}, "password": "secret123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	resp, env = apitest.Do(t, app, "POST", "/api/auth/login", map[string]any{
		"email": "sara@law.test", "password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var out struct {
		Token string `json:"token"`
	}
	apitest.DecodeData(t, env, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func Test_PublicAndProtectedRoutes(t *testing.T) {
	app := newTestApp(t)

	resp, env := apitest.Do(t, app, "GET", "/api/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	for _, path := range []string{"/api/clients", "/api/cases", "/api/appointments", "/api/documents",
		"/api/contracts", "/api/invoices", "/api/stats", "/api/auth/me"} {
		resp, env := apitest.Do(t, app, "GET", path, nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "UNAUTHORIZED", env.Code, path)
	}

	resp, env = apitest.Do(t, app, "GET", "/api/nothing-here", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func Test_EndToEnd(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	resp, env := apitest.Send(t, app, authed(t, "POST", "/api/clients", token, map[string]any{
		"name": "Omar Khalid", "email": "omar@x.com", "phone": "0555",
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var cl models.Client
	apitest.DecodeData(t, env, &cl)

	// /list must not be captured by /:id
	resp, env = apitest.Send(t, app, authed(t, "GET", "/api/clients/list", token, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var opts []models.ClientOption
	apitest.DecodeData(t, env, &opts)
	require.Len(t, opts, 1)
	assert.Equal(t, cl.ID, opts[0].ID)

	resp, env = apitest.Send(t, app, authed(t, "POST", "/api/cases", token, map[string]any{
		"title": "Lease dispute", "caseNumber": "C-1", "caseType": "CIVIL", "clientId": cl.ID, "startDate": "2025-03-01",
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var cs models.Case
	apitest.DecodeData(t, env, &cs)
	assert.Equal(t, "Sara Ahmed", cs.LawyerName)

	resp, env = apitest.Send(t, app, authed(t, "DELETE", "/api/clients/"+cl.ID, token, nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", env.Code)

	resp, env = apitest.Send(t, app, authed(t, "GET", "/api/stats", token, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats struct {
		Lawyers int64 `json:"lawyers"`
		Clients int64 `json:"clients"`
		Cases   int64 `json:"cases"`
	}
	apitest.DecodeData(t, env, &stats)
	assert.Equal(t, int64(1), stats.Lawyers)
	assert.Equal(t, int64(1), stats.Clients)
	assert.Equal(t, int64(1), stats.Cases)
}

func Test_UploadIsServedStatically(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hearing moved to Monday\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, env := apitest.Send(t, app, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var doc models.Document
	apitest.DecodeData(t, env, &doc)

	got, err := app.Test(httptest.NewRequest("GET", doc.URL, nil), -1)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, fiber.StatusOK, got.StatusCode)
	b, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "hearing moved to Monday\n", string(b))
}
