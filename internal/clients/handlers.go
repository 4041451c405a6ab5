package clients

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/internal/cache"
	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/pkg/apperr"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
	"github.com/aldoetobex/legal-office-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-office-backend/pkg/utils"
	"github.com/aldoetobex/legal-office-backend/pkg/validation"
)

// OptionsCacheKey holds the active-client picker list.
const OptionsCacheKey = "clients:options"

const selectClient = `SELECT c.*, (SELECT COUNT(*) FROM cases ca WHERE ca.client_id = c.id) AS cases_count FROM clients c`

// ===== DTOs =====

type ClientRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email,max=160"`
	Phone       string `json:"phone" validate:"required,max=40"`
	NationalID  string `json:"nationalId" validate:"max=40"`
	Address     string `json:"address" validate:"max=255"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,isodate"`
	Notes       string `json:"notes" validate:"max=5000"`
	Status      string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (in *ClientRequest) normalize() {
	in.Name = sanitize.Line(in.Name)
	in.Email = sanitize.Email(in.Email)
	in.Phone = sanitize.Line(in.Phone)
	in.NationalID = sanitize.Line(in.NationalID)
	in.Address = sanitize.Line(in.Address)
	in.DateOfBirth = sanitize.Line(in.DateOfBirth)
	in.Notes = sanitize.Text(in.Notes)
}

type Handler struct {
	pool     *database.Pool
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewHandler wires the client handlers. c may be nil to disable caching.
func NewHandler(pool *database.Pool, c cache.Cache, ttl time.Duration) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{pool: pool, cache: c, cacheTTL: ttl}
}

// List Clients godoc
// @Summary      List clients
// @Description  Paginated clients with their case counts
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        status  query string false "ACTIVE | INACTIVE | all"
// @Param        search  query string false "name, email or phone contains"
// @Param        page    query int    false "page"
// @Param        limit   query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Client}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /clients [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("c.status", c.Query("status")).
		Search(c.Query("search"), "c.name", "c.email", "c.phone")

	rows, total, err := utils.Paginate[models.Client](c.UserContext(), h.pool, utils.ListQuery{
		Select:  selectClient,
		Count:   "SELECT COUNT(*) FROM clients c",
		Where:   w,
		OrderBy: "c.created_at DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Create Client godoc
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  ClientRequest  true  "Client payload"
// @Success      201  {object}  models.Envelope{data=models.Client}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /clients [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in ClientRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if err := h.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return err
	}

	id := uuid.NewString()
	now := utils.Now()
	_, err := h.pool.Exec(ctx,
		`INSERT INTO clients (id, name, email, phone, national_id, address, date_of_birth, notes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Email, in.Phone, in.NationalID, in.Address, in.DateOfBirth, in.Notes,
		string(models.ClientActive), now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return emailTaken()
		}
		return err
	}
	h.invalidate(ctx)

	cl, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Client created successfully",
		Data:    cl,
	})
}

// Get Client godoc
// @Summary      Client detail
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "client id"
// @Success      200  {object}  models.Envelope{data=models.Client}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /clients/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	cl, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: cl})
}

// Update Client godoc
// @Summary      Update client
// @Description  Replaces every mutable field. An empty status keeps the current one.
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "client id"
// @Param        payload  body  ClientRequest  true  "Client payload"
// @Success      200  {object}  models.Envelope{data=models.Client}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /clients/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in ClientRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if _, err := h.find(ctx, id); err != nil {
		return err
	}
	if err := h.ensureEmailFree(ctx, in.Email, id); err != nil {
		return err
	}

	_, err := h.pool.Exec(ctx,
		`UPDATE clients SET name = ?, email = ?, phone = ?, national_id = ?, address = ?, date_of_birth = ?,
		 notes = ?, status = COALESCE(NULLIF(?, ''), status), updated_at = ? WHERE id = ?`,
		in.Name, in.Email, in.Phone, in.NationalID, in.Address, in.DateOfBirth,
		in.Notes, in.Status, utils.Now(), id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return emailTaken()
		}
		return err
	}
	h.invalidate(ctx)

	cl, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Client updated successfully", Data: cl})
}

// Delete Client godoc
// @Summary      Delete client
// @Description  Refused while the client still has cases.
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "client id"
// @Success      200  {object}  models.Envelope
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /clients/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.UserContext()

	cl, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	if cl.CasesCount > 0 {
		return apperr.Conflict("Cannot delete a client that has cases")
	}

	res, err := h.pool.Exec(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return fiber.ErrNotFound
	}
	h.invalidate(ctx)
	return c.JSON(models.Envelope{Success: true, Message: "Client deleted successfully"})
}

// List Client Options godoc
// @Summary      Active clients for pickers
// @Description  id, name, email and phone of every ACTIVE client, ordered by name
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Envelope{data=[]models.ClientOption}
// @Router       /clients/list [get]
func (h *Handler) Options(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := logger.With("clients")

	var rows []models.ClientOption
	hit, err := h.cache.Get(ctx, OptionsCacheKey, &rows)
	if err != nil {
		log.Warn("client options cache read failed", "error", err)
	}
	if !hit {
		rows = make([]models.ClientOption, 0)
		if err := h.pool.Query(ctx, &rows,
			"SELECT id, name, email, phone FROM clients WHERE status = ? ORDER BY name ASC",
			string(models.ClientActive)); err != nil {
			return err
		}
		if err := h.cache.Set(ctx, OptionsCacheKey, rows, h.cacheTTL); err != nil {
			log.Warn("client options cache write failed", "error", err)
		}
	}
	if rows == nil {
		rows = []models.ClientOption{}
	}
	return c.JSON(models.Envelope{Success: true, Data: rows})
}

/* ============================== helpers ============================== */

func (h *Handler) find(ctx context.Context, id string) (models.Client, error) {
	var cl models.Client
	if err := h.pool.Get(ctx, &cl, selectClient+" WHERE c.id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return cl, fiber.NewError(fiber.StatusNotFound, "Client not found")
		}
		return cl, err
	}
	return cl, nil
}

// ensureEmailFree fails with a conflict when another client (not exceptID)
// already uses email.
func (h *Handler) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	taken, err := h.pool.Exists(ctx, "SELECT id FROM clients WHERE email = ? AND id <> ?", email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return emailTaken()
	}
	return nil
}

func emailTaken() error {
	return apperr.Conflict("A client with this email already exists")
}

func (h *Handler) invalidate(ctx context.Context) {
	if err := h.cache.Delete(ctx, OptionsCacheKey); err != nil {
		logger.With("clients").Warn("client options cache invalidation failed", "error", err)
	}
}
