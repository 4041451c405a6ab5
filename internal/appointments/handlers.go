package appointments

import (
	"context"

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

const selectAppointment = `SELECT a.*, COALESCE(cl.name, '') AS client_name
FROM appointments a LEFT JOIN clients cl ON cl.id = a.client_id`

// ===== DTOs =====

type AppointmentRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	ClientID    string `json:"clientId" validate:"required,max=36"`
	Date        string `json:"date" validate:"required,isodate"`
	Time        string `json:"time" validate:"required,hhmm"`
	Duration    int    `json:"duration" validate:"required,gte=1,lte=1440"`
	Type        string `json:"type" validate:"required,oneof=consultation review court meeting"`
	Status      string `json:"status" validate:"omitempty,oneof=SCHEDULED COMPLETED CANCELLED RESCHEDULED"`
	Location    string `json:"location" validate:"max=200"`
	Notes       string `json:"notes" validate:"max=5000"`
}

func (in *AppointmentRequest) normalize() {
	in.Title = sanitize.Line(in.Title)
	in.Description = sanitize.Text(in.Description)
	in.ClientID = sanitize.Line(in.ClientID)
	in.Date = sanitize.Line(in.Date)
	in.Time = sanitize.Line(in.Time)
	in.Location = sanitize.Line(in.Location)
	in.Notes = sanitize.Text(in.Notes)
}

type Handler struct {
	pool *database.Pool
}

func NewHandler(pool *database.Pool) *Handler {
	return &Handler{pool: pool}
}

// List Appointments godoc
// @Summary      List appointments
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "SCHEDULED | COMPLETED | CANCELLED | RESCHEDULED | all"
// @Param        date      query string false "YYYY-MM-DD"
// @Param        clientId  query string false "client id"
// @Param        page      query int    false "page"
// @Param        limit     query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Appointment}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /appointments [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("a.status", c.Query("status")).
		Eq("a.appointment_date", c.Query("date")).
		Eq("a.client_id", c.Query("clientId"))

	rows, total, err := utils.Paginate[models.Appointment](c.UserContext(), h.pool, utils.ListQuery{
		Select:  selectAppointment,
		Count:   "SELECT COUNT(*) FROM appointments a",
		Where:   w,
		OrderBy: "a.appointment_date DESC, a.appointment_time DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Create Appointment godoc
// @Summary      Schedule appointment
// @Description  Rejects a slot already held by another appointment that is not cancelled.
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  AppointmentRequest  true  "Appointment payload"
// @Success      201  {object}  models.Envelope{data=models.Appointment}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /appointments [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in AppointmentRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
		return err
	}
	if err := h.ensureSlotFree(ctx, in.Date, in.Time, ""); err != nil {
		return err
	}

	id := uuid.NewString()
	now := utils.Now()
	if _, err := h.pool.Exec(ctx,
		`INSERT INTO appointments (id, title, description, client_id, lawyer_id, appointment_date, appointment_time,
		 duration, appointment_type, status, location, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Description, in.ClientID, auth.MustUserID(c), in.Date, in.Time,
		in.Duration, in.Type, string(models.AppointmentScheduled), in.Location, in.Notes, now, now); err != nil {
		return err
	}

	ap, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Appointment scheduled successfully",
		Data:    ap,
	})
}

// Get Appointment godoc
// @Summary      Appointment detail
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "appointment id"
// @Success      200  {object}  models.Envelope{data=models.Appointment}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	ap, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: ap})
}

// Update Appointment godoc
// @Summary      Update appointment
// @Description  The slot is re-checked unless the appointment is being cancelled.
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string              true  "appointment id"
// @Param        payload  body  AppointmentRequest  true  "Appointment payload"
// @Success      200  {object}  models.Envelope{data=models.Appointment}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in AppointmentRequest
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
	status := cur.Status
	if in.Status != "" {
		status = models.AppointmentStatus(in.Status)
	}

	if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
		return err
	}
	if status != models.AppointmentCancelled {
		if err := h.ensureSlotFree(ctx, in.Date, in.Time, id); err != nil {
			return err
		}
	}

	res, err := h.pool.Exec(ctx,
		`UPDATE appointments SET title = ?, description = ?, client_id = ?, appointment_date = ?, appointment_time = ?,
		 duration = ?, appointment_type = ?, status = ?, location = ?, notes = ?, updated_at = ? WHERE id = ?`,
		in.Title, in.Description, in.ClientID, in.Date, in.Time,
		in.Duration, in.Type, string(status), in.Location, in.Notes, utils.Now(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return notFound()
	}

	ap, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Appointment updated successfully", Data: ap})
}

// Delete Appointment godoc
// @Summary      Delete appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "appointment id"
// @Success      200  {object}  models.Envelope
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	res, err := h.pool.Exec(c.UserContext(), "DELETE FROM appointments WHERE id = ?", c.Params("id"))
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	return c.JSON(models.Envelope{Success: true, Message: "Appointment deleted successfully"})
}

/* ============================== helpers ============================== */

func (h *Handler) find(ctx context.Context, id string) (models.Appointment, error) {
	var ap models.Appointment
	if err := h.pool.Get(ctx, &ap, selectAppointment+" WHERE a.id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return ap, notFound()
		}
		return ap, err
	}
	return ap, nil
}

// ensureSlotFree rejects an exact date and time match with any appointment
// other than exceptID that is not cancelled. Durations are not compared.
func (h *Handler) ensureSlotFree(ctx context.Context, date, at, exceptID string) error {
	taken, err := h.pool.Exists(ctx,
		`SELECT id FROM appointments
		 WHERE appointment_date = ? AND appointment_time = ? AND status <> ? AND id <> ?`,
		date, at, string(models.AppointmentCancelled), exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("Another appointment is already scheduled at this time")
	}
	return nil
}

func notFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Appointment not found")
}
