package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aldoetobex/legal-office-backend/internal/apitest"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/database/databasetest"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

const testSecret = "test-secret"

func init() { bcryptCost = bcrypt.MinCost }

func newTestApp(t *testing.T) (*fiber.App, *database.Pool) {
	t.Helper()
	pool := databasetest.New(t)
	h := NewHandler(pool, testSecret, true)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/logout", h.Logout)
	app.Get("/api/auth/me", RequireAuth(testSecret), h.Me)
	return app, pool
}

func validRegister() map[string]any {
	return map[string]any{
		"name":        "Sara Ahmed",
		"email":       "Sara@Law.test",
		"phone":       "0500000000",
		"country":     "SA",
		"workArea":    "Riyadh",
		"licenseNo":   "LIC-1001",
		"specialties": []string{"family", "labor"},
		"password":    "secret123",
	}
}

func register(t *testing.T, app *fiber.App, body map[string]any) (*http.Response, apitest.Envelope) {
	t.Helper()
	return apitest.Do(t, app, "POST", "/api/auth/register", body)
}

func Test_Register(t *testing.T) {
	app, pool := newTestApp(t)

	resp, env := register(t, app, validRegister())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	var data struct {
		LawyerID string `json:"lawyerId"`
	}
	apitest.DecodeData(t, env, &data)
	require.NotEmpty(t, data.LawyerID)

	var stored models.Lawyer
	require.NoError(t, pool.Get(context.Background(), &stored, "SELECT * FROM lawyers WHERE id = ?", data.LawyerID))
	assert.Equal(t, "sara@law.test", stored.Email)
	assert.Equal(t, []string{"family", "labor"}, []string(stored.Specialties))
	assert.True(t, stored.Active)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		body := validRegister()
		body["licenseNo"] = "LIC-2002"
		resp, env := register(t, app, body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.False(t, env.Success)
		assert.Equal(t, "CONFLICT", env.Code)
	})

	t.Run("duplicate license is a conflict", func(t *testing.T) {
		body := validRegister()
		body["email"] = "other@law.test"
		resp, env := register(t, app, body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "CONFLICT", env.Code)
	})

	var n int64
	require.NoError(t, pool.Query(context.Background(), &n, "SELECT COUNT(*) FROM lawyers"))
	assert.Equal(t, int64(1), n)
}

func Test_Register_MissingFields(t *testing.T) {
	app, pool := newTestApp(t)

	for _, field := range []string{"name", "email", "phone", "country", "workArea", "licenseNo", "specialties", "password"} {
		t.Run(field, func(t *testing.T) {
			body := validRegister()
			delete(body, field)
			resp, env := register(t, app, body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Contains(t, env.Errors, field)
		})
	}

	var n int64
	require.NoError(t, pool.Query(context.Background(), &n, "SELECT COUNT(*) FROM lawyers"))
	assert.Zero(t, n)
}

func Test_Login(t *testing.T) {
	app, pool := newTestApp(t)
	resp, _ := register(t, app, validRegister())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	t.Run("success sets cookie and returns token", func(t *testing.T) {
		resp, env := apitest.Do(t, app, "POST", "/api/auth/login", map[string]string{
			"email": "sara@law.test", "password": "secret123",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, env.Success)

		var data struct {
			Token string         `json:"token"`
			User  map[string]any `json:"user"`
		}
		apitest.DecodeData(t, env, &data)
		require.NotEmpty(t, data.Token)
		assert.Equal(t, "sara@law.test", data.User["email"])
		assert.NotContains(t, data.User, "passwordHash")
		assert.NotContains(t, data.User, "PasswordHash")

		var cookie *http.Cookie
		for _, ck := range resp.Cookies() {
			if ck.Name == CookieName {
				cookie = ck
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, data.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, int(TokenTTL.Seconds()), cookie.MaxAge)

		claims, err := ParseToken(testSecret, data.Token)
		require.NoError(t, err)
		assert.Equal(t, data.User["id"], claims.Sub)
		assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		r1, e1 := apitest.Do(t, app, "POST", "/api/auth/login", map[string]string{
			"email": "sara@law.test", "password": "wrong-pass",
		})
		r2, e2 := apitest.Do(t, app, "POST", "/api/auth/login", map[string]string{
			"email": "nobody@law.test", "password": "secret123",
		})
		assert.Equal(t, fiber.StatusUnauthorized, r1.StatusCode)
		assert.Equal(t, r1.StatusCode, r2.StatusCode)
		assert.Equal(t, e1.Message, e2.Message)
		assert.Equal(t, e1.Code, e2.Code)
		assert.False(t, e1.Success)
	})

	t.Run("inactive account is rejected the same way", func(t *testing.T) {
		_, err := pool.Exec(context.Background(), "UPDATE lawyers SET active = ? WHERE email = ?", false, "sara@law.test")
		require.NoError(t, err)

		resp, env := apitest.Do(t, app, "POST", "/api/auth/login", map[string]string{
			"email": "sara@law.test", "password": "secret123",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", env.Message)
	})

	t.Run("missing password is a validation error", func(t *testing.T) {
		resp, env := apitest.Do(t, app, "POST", "/api/auth/login", map[string]string{"email": "sara@law.test"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, env.Errors, "password")
	})
}

func Test_Me_And_RequireAuth(t *testing.T) {
	app, _ := newTestApp(t)
	resp, env := register(t, app, validRegister())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var reg struct {
		LawyerID string `json:"lawyerId"`
	}
	apitest.DecodeData(t, env, &reg)

	token, err := IssueToken(testSecret, reg.LawyerID, "sara@law.test")
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		resp, env := apitest.Send(t, app, req)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var me models.Lawyer
		apitest.DecodeData(t, env, &me)
		assert.Equal(t, reg.LawyerID, me.ID)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := apitest.Send(t, app, req)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		resp, env := apitest.Do(t, app, "GET", "/api/auth/me", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", env.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		bad, err := IssueToken("other-secret", reg.LawyerID, "sara@law.test")
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+bad)
		resp, _ := apitest.Send(t, app, req)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &Claims{
			Sub: reg.LawyerID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		resp, _ := apitest.Send(t, app, req)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func Test_Logout_ClearsCookie(t *testing.T) {
	app, _ := newTestApp(t)
	resp, env := apitest.Do(t, app, "POST", "/api/auth/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			found = true
			assert.Empty(t, ck.Value)
		}
	}
	assert.True(t, found)
}

func Test_ErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return assert.AnError })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/dup", func(c *fiber.Ctx) error {
		return &database.StatementError{Err: errUnique{}}
	})

	resp, env := apitest.Do(t, app, "GET", "/boom", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	assert.Equal(t, assert.AnError.Error(), env.Error)
	assert.False(t, env.Success)

	resp, env = apitest.Do(t, app, "GET", "/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Empty(t, env.Error)

	resp, env = apitest.Do(t, app, "GET", "/dup", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", env.Code)
}

type errUnique struct{}

func (errUnique) Error() string { return "UNIQUE constraint failed: clients.email" }
