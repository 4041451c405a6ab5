package contracts

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
	"github.com/aldoetobex/legal-office-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-office-backend/pkg/utils"
	"github.com/aldoetobex/legal-office-backend/pkg/validation"
)

const selectContract = `SELECT ct.*, COALESCE(cl.name, '') AS client_name
FROM contracts ct LEFT JOIN clients cl ON cl.id = ct.client_id`

// ===== DTOs =====

type ContractRequest struct {
	Title        string      `json:"title" validate:"required,max=200"`
	ContractType string      `json:"contractType" validate:"required,oneof=POWER_OF_ATTORNEY LEGAL_CONSULTATION REPRESENTATION OTHER"`
	Status       string      `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE COMPLETED TERMINATED"`
	ClientID     string      `json:"clientId" validate:"required,max=36"`
	Amount       json.Number `json:"amount" swaggertype:"number"`
	StartDate    string      `json:"startDate" validate:"omitempty,isodate"`
	EndDate      string      `json:"endDate" validate:"omitempty,isodate"`
	Description  string      `json:"description" validate:"max=10000"`
	Terms        string      `json:"terms" validate:"max=20000"`
}

func (in *ContractRequest) normalize() {
	in.Title = sanitize.Line(in.Title)
	in.ClientID = sanitize.Line(in.ClientID)
	in.StartDate = sanitize.Line(in.StartDate)
	in.EndDate = sanitize.Line(in.EndDate)
	in.Description = sanitize.Text(in.Description)
	in.Terms = sanitize.Text(in.Terms)
}

// validate runs the tag rules plus the cross-field checks and returns the
// amount in cents.
func (in *ContractRequest) validate() (int64, map[string][]string) {
	errs, _ := validation.Validate(in)
	cents, err := utils.Cents(in.Amount)
	if err != nil {
		errs = validation.Add(errs, "amount", "Must be a non-negative amount with at most two decimals")
	}
	if in.StartDate != "" && in.EndDate != "" && in.EndDate < in.StartDate {
		errs = validation.Add(errs, "endDate", "Must not be before the start date")
	}
	return cents, errs
}

type Handler struct {
	pool *database.Pool
}

func NewHandler(pool *database.Pool) *Handler {
	return &Handler{pool: pool}
}

// List Contracts godoc
// @Summary      List contracts
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "DRAFT | ACTIVE | COMPLETED | TERMINATED | all"
// @Param        clientId  query string false "client id"
// @Param        search    query string false "title contains"
// @Param        page      query int    false "page"
// @Param        limit     query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Contract}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /contracts [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("ct.status", c.Query("status")).
		Eq("ct.client_id", c.Query("clientId")).
		Search(c.Query("search"), "ct.title")

	rows, total, err := utils.Paginate[models.Contract](c.UserContext(), h.pool, utils.ListQuery{
		Select:  selectContract,
		Count:   "SELECT COUNT(*) FROM contracts ct",
		Where:   w,
		OrderBy: "ct.created_at DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Create Contract godoc
// @Summary      Create contract
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  ContractRequest  true  "Contract payload"
// @Success      201  {object}  models.Envelope{data=models.Contract}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /contracts [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in ContractRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	cents, errs := in.validate()
	if errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
		return err
	}
	status := models.ContractDraft
	if in.Status != "" {
		status = models.ContractStatus(in.Status)
	}

	id := uuid.NewString()
	now := utils.Now()
	if _, err := h.pool.Exec(ctx,
		`INSERT INTO contracts (id, title, contract_type, status, client_id, lawyer_id, amount_cents, start_date, end_date,
		 description, terms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.ContractType, string(status), in.ClientID, auth.MustUserID(c), cents, in.StartDate, in.EndDate,
		in.Description, in.Terms, now, now); err != nil {
		return err
	}

	ct, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Contract created successfully",
		Data:    ct,
	})
}

// Get Contract godoc
// @Summary      Contract detail
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "contract id"
// @Success      200  {object}  models.Envelope{data=models.Contract}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /contracts/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	ct, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: ct})
}

// Update Contract godoc
// @Summary      Update contract
// @Description  Replaces every mutable field. An empty status keeps the current one.
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "contract id"
// @Param        payload  body  ContractRequest  true  "Contract payload"
// @Success      200  {object}  models.Envelope{data=models.Contract}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /contracts/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in ContractRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	cents, errs := in.validate()
	if errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if _, err := h.find(ctx, id); err != nil {
		return err
	}
	if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
		return err
	}

	if _, err := h.pool.Exec(ctx,
		`UPDATE contracts SET title = ?, contract_type = ?, status = COALESCE(NULLIF(?, ''), status), client_id = ?,
		 amount_cents = ?, start_date = ?, end_date = ?, description = ?, terms = ?, updated_at = ? WHERE id = ?`,
		in.Title, in.ContractType, in.Status, in.ClientID,
		cents, in.StartDate, in.EndDate, in.Description, in.Terms, utils.Now(), id); err != nil {
		return err
	}

	ct, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Contract updated successfully", Data: ct})
}

// Delete Contract godoc
// @Summary      Delete contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "contract id"
// @Success      200  {object}  models.Envelope
// @Failure      404  {object}  models.ErrorResponse
// @Router       /contracts/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	res, err := h.pool.Exec(c.UserContext(), "DELETE FROM contracts WHERE id = ?", c.Params("id"))
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	return c.JSON(models.Envelope{Success: true, Message: "Contract deleted successfully"})
}

func (h *Handler) find(ctx context.Context, id string) (models.Contract, error) {
	var ct models.Contract
	if err := h.pool.Get(ctx, &ct, selectContract+" WHERE ct.id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return ct, notFound()
		}
		return ct, err
	}
	return ct, nil
}

func notFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Contract not found")
}
