package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/aldoetobex/legal-office-backend/pkg/apperr"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
	"github.com/aldoetobex/legal-office-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-office-backend/pkg/utils"
	"github.com/aldoetobex/legal-office-backend/pkg/validation"
)

// bcryptCost is lowered by tests.
var bcryptCost = 12

// errInvalidCredentials is returned for every login failure: unknown email,
// inactive account or wrong password.
var errInvalidCredentials = fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")

/* ================================ DTOs ================================= */

// Request body for /auth/register
type RegisterRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=120"`
	Email       string   `json:"email" validate:"required,email,max=160"`
	Phone       string   `json:"phone" validate:"required,max=40"`
	Country     string   `json:"country" validate:"required,max=80"`
	WorkArea    string   `json:"workArea" validate:"required,max=120"`
	LicenseNo   string   `json:"licenseNo" validate:"required,licenseno"`
	Specialties []string `json:"specialties" validate:"required,min=1,dive,required,max=80"`
	Password    string   `json:"password" validate:"required,min=6,max=72"`
}

// Request body for /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the data block of a successful login.
type LoginResponse struct {
	User  models.Lawyer `json:"user"`
	Token string        `json:"token"`
}

/* ============================== Handler ================================= */

type Handler struct {
	pool         *database.Pool
	secret       string
	secureCookie bool
}

func NewHandler(pool *database.Pool, secret string, secureCookie bool) *Handler {
	return &Handler{pool: pool, secret: secret, secureCookie: secureCookie}
}

/* =============================== Register =============================== */

// @Summary      Register
// @Description  Register a new lawyer account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  RegisterRequest  true  "Register payload"
// @Success      201      {object}  models.Envelope
// @Failure      400      {object}  models.ValidationErrorResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *fiber.Ctx) error {
	var in RegisterRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	in.Email = sanitize.Email(in.Email)
	in.Name = sanitize.Line(in.Name)
	in.LicenseNo = sanitize.Line(in.LicenseNo)
	specialties := make([]string, 0, len(in.Specialties))
	for _, s := range in.Specialties {
		if s = sanitize.Line(s); s != "" {
			specialties = append(specialties, s)
		}
	}
	in.Specialties = specialties

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	taken, err := h.pool.Exists(ctx, "SELECT id FROM lawyers WHERE email = ?", in.Email)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("Email is already registered")
	}
	taken, err = h.pool.Exists(ctx, "SELECT id FROM lawyers WHERE license_no = ?", in.LicenseNo)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("License number is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := utils.Now()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO lawyers (id, name, email, phone, country, work_area, license_no, specialties, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Email, sanitize.Line(in.Phone), sanitize.Line(in.Country), sanitize.Line(in.WorkArea),
		in.LicenseNo, datatypes.JSONSlice[string](in.Specialties), string(hash), true, now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("Email or license number is already registered")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Lawyer registered successfully",
		Data:    fiber.Map{"lawyerId": id},
	})
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate, set the auth-token cookie and return the token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  models.Envelope{data=LoginResponse}
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	in.Email = sanitize.Email(in.Email)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.Lawyer
	err := h.pool.Get(c.UserContext(), &u, "SELECT * FROM lawyers WHERE email = ?", in.Email)
	if err != nil {
		if database.IsNotFound(err) {
			return errInvalidCredentials
		}
		return err
	}
	if !u.Active {
		return errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return errInvalidCredentials
	}

	token, err := IssueToken(h.secret, u.ID, u.Email)
	if err != nil {
		return err
	}
	h.setCookie(c, token, TokenTTL)

	return c.JSON(models.Envelope{
		Success: true,
		Message: "Login successful",
		Data:    LoginResponse{User: u, Token: token},
	})
}

/* ================================ Logout ================================ */

// @Summary      Logout
// @Description  Clear the auth-token cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  models.Envelope
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.setCookie(c, "", -time.Hour)
	return c.JSON(models.Envelope{Success: true, Message: "Logged out"})
}

func (h *Handler) setCookie(c *fiber.Ctx, value string, ttl time.Duration) {
	ck := &fiber.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(ttl),
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
	} else {
		ck.MaxAge = -1
	}
	c.Cookie(ck)
}

/* ================================= Me =================================== */

// @Summary      Current lawyer
// @Description  Return the authenticated lawyer's profile
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Envelope{data=models.Lawyer}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	var u models.Lawyer
	if err := h.pool.Get(c.UserContext(), &u, "SELECT * FROM lawyers WHERE id = ?", MustUserID(c)); err != nil {
		if database.IsNotFound(err) {
			return fiber.ErrUnauthorized
		}
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: u})
}
