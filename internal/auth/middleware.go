package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/pkg/apperr"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

// CookieName is the HTTP-only cookie carrying the session token.
const CookieName = "auth-token"

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

/* ============================== JWT Claims ============================== */

// Claims represents the JWT payload we issue and expect.
type Claims struct {
	Sub   string `json:"sub"` // lawyer ID
	Email string `json:"email"`
	jwt.RegisteredClaims
}

/* ============================== JWT Helpers ============================= */

// IssueToken signs an HS256 JWT for the given lawyer, valid for TokenTTL.
func IssueToken(secret, lawyerID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:   lawyerID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fiber.ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Sub == "" {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

/* ============================== Middleware ============================== */

// RequireAuth accepts the auth-token cookie or a Bearer header and injects
// the lawyer ID and email into the context.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(CookieName)
		if tokenStr == "" {
			h := c.Get(fiber.HeaderAuthorization)
			if !strings.HasPrefix(h, "Bearer ") {
				return fiber.ErrUnauthorized
			}
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		}

		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("userID", claims.Sub)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// MustUserID reads the authenticated lawyer ID from context or panics (programming error).
func MustUserID(c *fiber.Ctx) string {
	if v, ok := c.Locals("userID").(string); ok && v != "" {
		return v
	}
	panic(errors.New("user not in context"))
}

/* =========================== Error Formatting =========================== */

// httpCodeToString converts an HTTP status code to a short, stable string.
func httpCodeToString(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorHandler is the global Fiber error handler. Every failure leaves as
// {success:false, message, code}; unexpected errors also carry the raw error
// text and are logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := fiber.ErrInternalServerError.Message
	codeStr := ""
	detail := ""

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		msg = fe.Message
		if strings.TrimSpace(msg) == "" {
			msg = fiber.NewError(code).Message
		}
	case isAppError(err):
		ae, _ := apperr.As(err)
		code, codeStr, msg = ae.Status, ae.Code, ae.Message
	case database.IsUniqueViolation(err):
		// a concurrent write won the race past the pre-check
		code, codeStr, msg = fiber.StatusBadRequest, apperr.CodeConflict, "Resource already exists"
	default:
		detail = err.Error()
	}

	if codeStr == "" {
		codeStr = httpCodeToString(code)
	}
	if code >= fiber.StatusInternalServerError {
		logger.With("http").Error("request failed",
			"method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Success: false,
		Message: msg,
		Code:    codeStr,
		Error:   detail,
	})
}

func isAppError(err error) bool {
	_, ok := apperr.As(err)
	return ok
}
