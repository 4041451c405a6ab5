package cases

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/pkg/apperr"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
	"github.com/aldoetobex/legal-office-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-office-backend/pkg/utils"
	"github.com/aldoetobex/legal-office-backend/pkg/validation"
)

// History actions.
const (
	ActionCreated       = "CREATED"
	ActionStatusChanged = "STATUS_CHANGED"
)

const selectCase = `SELECT ca.*, COALESCE(l.name, '') AS lawyer_name
FROM cases ca LEFT JOIN lawyers l ON l.id = ca.lawyer_id`

// ===== DTOs =====

// CaseRequest is shared by create and update. Either clientId or clientName
// identifies the client; with clientId the contact details are copied from
// the client record.
type CaseRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	CaseNumber     string `json:"caseNumber" validate:"max=40"`
	GenerateNumber bool   `json:"generateNumber"`
	CaseType       string `json:"caseType" validate:"required,oneof=CIVIL CRIMINAL COMMERCIAL FAMILY ADMINISTRATIVE LABOR OTHER"`
	Status         string `json:"status" validate:"omitempty,oneof=OPEN CLOSED SUSPENDED APPEALED"`
	StatusReason   string `json:"statusReason" validate:"max=1000"`
	ClientID       string `json:"clientId" validate:"max=36"`
	ClientName     string `json:"clientName" validate:"required_without=ClientID,max=120"`
	ClientPhone    string `json:"clientPhone" validate:"max=40"`
	ClientEmail    string `json:"clientEmail" validate:"omitempty,email,max=160"`
	LawyerID       string `json:"lawyerId" validate:"max=36"`
	Court          string `json:"court" validate:"max=160"`
	Opponent       string `json:"opponent" validate:"max=160"`
	Description    string `json:"description" validate:"max=10000"`
	StartDate      string `json:"startDate" validate:"required,isodate"`
	EndDate        string `json:"endDate" validate:"omitempty,isodate"`
	NextSession    string `json:"nextSession" validate:"omitempty,isodate"`
	Notes          string `json:"notes" validate:"max=5000"`
}

func (in *CaseRequest) normalize() {
	in.Title = sanitize.Line(in.Title)
	in.CaseNumber = sanitize.Line(in.CaseNumber)
	in.StatusReason = sanitize.Text(in.StatusReason)
	in.ClientID = sanitize.Line(in.ClientID)
	in.ClientName = sanitize.Line(in.ClientName)
	in.ClientPhone = sanitize.Line(in.ClientPhone)
	in.ClientEmail = sanitize.Email(in.ClientEmail)
	in.LawyerID = sanitize.Line(in.LawyerID)
	in.Court = sanitize.Line(in.Court)
	in.Opponent = sanitize.Line(in.Opponent)
	in.Description = sanitize.Text(in.Description)
	in.StartDate = sanitize.Line(in.StartDate)
	in.EndDate = sanitize.Line(in.EndDate)
	in.NextSession = sanitize.Line(in.NextSession)
	in.Notes = sanitize.Text(in.Notes)
}

type Handler struct {
	pool *database.Pool
}

func NewHandler(pool *database.Pool) *Handler {
	return &Handler{pool: pool}
}

// List Cases godoc
// @Summary      List cases
// @Description  Paginated cases with the assigned lawyer's name
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "OPEN | CLOSED | SUSPENDED | APPEALED | all"
// @Param        caseType  query string false "case type"
// @Param        clientId  query string false "client id, or part of the client name"
// @Param        search    query string false "title or case number contains"
// @Param        page      query int    false "page"
// @Param        limit     query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Case}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("ca.status", c.Query("status")).
		Eq("ca.case_type", c.Query("caseType")).
		Search(c.Query("search"), "ca.title", "ca.case_number")

	// clientId matches the reference exactly or a walk-in client's name.
	if ref := sanitize.Line(c.Query("clientId")); ref != "" {
		w.Add("(ca.client_id = ? OR LOWER(ca.client_name) LIKE ? ESCAPE '!')", ref, utils.LikePattern(ref))
	}

	rows, total, err := utils.Paginate[models.Case](c.UserContext(), h.pool, utils.ListQuery{
		Select:  selectCase,
		Count:   "SELECT COUNT(*) FROM cases ca",
		Where:   w,
		OrderBy: "ca.created_at DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Create Case godoc
// @Summary      Create case
// @Description  Opens a case. Set generateNumber to let the server assign CASE-YYYY-NNNN.
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CaseRequest  true  "Case payload"
// @Success      201  {object}  models.Envelope{data=models.Case}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	errs, _ := validation.Validate(in)
	if in.CaseNumber == "" && !in.GenerateNumber {
		errs = validation.Add(errs, "caseNumber", "This field is required")
	}
	if errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	actorID := auth.MustUserID(c)
	if in.LawyerID == "" {
		in.LawyerID = actorID
	}
	if err := h.resolveRefs(ctx, &in); err != nil {
		return err
	}

	generated := in.CaseNumber == ""
	if !generated {
		if err := h.ensureNumberFree(ctx, in.CaseNumber, ""); err != nil {
			return err
		}
	}

	id := uuid.NewString()
	for attempt := 1; ; attempt++ {
		if generated {
			num, err := utils.NextNumber(ctx, h.pool, "cases", "case_number",
				fmt.Sprintf("CASE-%d-", utils.Now().Year()), 4)
			if err != nil {
				return err
			}
			in.CaseNumber = num
		}

		err := h.insert(ctx, id, actorID, in)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			return err
		}
		if !generated || attempt >= utils.MaxNumberAttempts {
			return numberTaken()
		}
	}

	cs, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Case created successfully",
		Data:    cs,
	})
}

func (h *Handler) insert(ctx context.Context, id, actorID string, in CaseRequest) error {
	now := utils.Now()
	_, err := h.pool.Transaction(ctx,
		database.Stmt(
			`INSERT INTO cases (id, case_number, title, case_type, status, client_id, client_name, client_phone, client_email,
			 lawyer_id, court, opponent, description, start_date, end_date, next_session, notes, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, in.CaseNumber, in.Title, in.CaseType, string(models.CaseOpen),
			in.ClientID, in.ClientName, in.ClientPhone, in.ClientEmail,
			in.LawyerID, in.Court, in.Opponent, in.Description, in.StartDate, in.EndDate, in.NextSession, in.Notes,
			now, now),
		utils.CaseHistoryStmt(id, actorID, ActionCreated, "", models.CaseOpen, "", now),
	)
	return err
}

// Get Case godoc
// @Summary      Case detail
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id"
// @Success      200  {object}  models.Envelope{data=models.Case}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	cs, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: cs})
}

// Update Case godoc
// @Summary      Update case
// @Description  Replaces every mutable field. A status change is recorded in the case history.
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string       true  "case id"
// @Param        payload  body  CaseRequest  true  "Case payload"
// @Success      200  {object}  models.Envelope{data=models.Case}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in CaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	cur, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	if in.CaseNumber == "" {
		in.CaseNumber = cur.CaseNumber
	}
	if in.LawyerID == "" {
		in.LawyerID = cur.LawyerID
	}
	if err := h.resolveRefs(ctx, &in); err != nil {
		return err
	}
	if err := h.ensureNumberFree(ctx, in.CaseNumber, id); err != nil {
		return err
	}

	newStatus := cur.Status
	if in.Status != "" {
		newStatus = models.CaseStatus(in.Status)
	}

	now := utils.Now()
	stmts := []database.Statement{database.Stmt(
		`UPDATE cases SET case_number = ?, title = ?, case_type = ?, status = ?, client_id = ?, client_name = ?,
		 client_phone = ?, client_email = ?, lawyer_id = ?, court = ?, opponent = ?, description = ?, start_date = ?,
		 end_date = ?, next_session = ?, notes = ?, updated_at = ? WHERE id = ?`,
		in.CaseNumber, in.Title, in.CaseType, string(newStatus), in.ClientID, in.ClientName,
		in.ClientPhone, in.ClientEmail, in.LawyerID, in.Court, in.Opponent, in.Description, in.StartDate,
		in.EndDate, in.NextSession, in.Notes, now, id,
	)}
	if newStatus != cur.Status {
		stmts = append(stmts, utils.CaseHistoryStmt(id, auth.MustUserID(c), ActionStatusChanged,
			cur.Status, newStatus, in.StatusReason, now))
	}

	res, err := h.pool.Transaction(ctx, stmts...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return numberTaken()
		}
		return err
	}
	if res[0].RowsAffected == 0 {
		return caseNotFound()
	}

	cs, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Case updated successfully", Data: cs})
}

// Delete Case godoc
// @Summary      Delete case
// @Description  Removes the case together with its history.
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id"
// @Success      200  {object}  models.Envelope
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	res, err := h.pool.Transaction(c.UserContext(),
		database.Stmt("DELETE FROM case_histories WHERE case_id = ?", id),
		database.Stmt("DELETE FROM cases WHERE id = ?", id),
	)
	if err != nil {
		return err
	}
	if res[1].RowsAffected == 0 {
		return caseNotFound()
	}
	return c.JSON(models.Envelope{Success: true, Message: "Case deleted successfully"})
}

// Case History godoc
// @Summary      Case history
// @Description  Audit entries of a case, newest first
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id"
// @Success      200  {object}  models.Envelope{data=[]models.CaseHistory}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/history [get]
func (h *Handler) History(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	if _, err := h.find(ctx, id); err != nil {
		return err
	}

	rows := make([]models.CaseHistory, 0)
	if err := h.pool.Query(ctx, &rows,
		"SELECT * FROM case_histories WHERE case_id = ? ORDER BY created_at DESC", id); err != nil {
		return err
	}
	if rows == nil {
		rows = []models.CaseHistory{}
	}
	return c.JSON(models.Envelope{Success: true, Data: rows})
}

/* ============================== helpers ============================== */

func (h *Handler) find(ctx context.Context, id string) (models.Case, error) {
	var cs models.Case
	if err := h.pool.Get(ctx, &cs, selectCase+" WHERE ca.id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return cs, caseNotFound()
		}
		return cs, err
	}
	return cs, nil
}

// resolveRefs checks the lawyer and copies client contact details when the
// case points at a client record.
func (h *Handler) resolveRefs(ctx context.Context, in *CaseRequest) error {
	ok, err := h.pool.Exists(ctx, "SELECT id FROM lawyers WHERE id = ?", in.LawyerID)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Lawyer not found")
	}

	if in.ClientID == "" {
		return nil
	}
	cl, err := utils.FindClient(ctx, h.pool, in.ClientID)
	if err != nil {
		return err
	}
	in.ClientName, in.ClientPhone, in.ClientEmail = cl.Name, cl.Phone, cl.Email
	return nil
}

func (h *Handler) ensureNumberFree(ctx context.Context, number, exceptID string) error {
	taken, err := h.pool.Exists(ctx, "SELECT id FROM cases WHERE case_number = ? AND id <> ?", number, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return numberTaken()
	}
	return nil
}

func numberTaken() error {
	return apperr.Conflict("A case with this number already exists")
}

func caseNotFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Case not found")
}
