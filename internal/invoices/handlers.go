package invoices

import (
	"context"
	"encoding/json"
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

// DefaultTaxRateBps applies when the request carries no taxRate (15%).
const DefaultTaxRateBps = 1500

const selectInvoice = `SELECT i.*, COALESCE(cl.name, '') AS client_name
FROM invoices i LEFT JOIN clients cl ON cl.id = i.client_id`

// ===== DTOs =====

type InvoiceRequest struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	ClientID    string      `json:"clientId" validate:"required,max=36"`
	CaseID      string      `json:"caseId" validate:"max=36"`
	Amount      json.Number `json:"amount" validate:"required" swaggertype:"number"`
	TaxRate     json.Number `json:"taxRate" swaggertype:"number"`
	DueDate     string      `json:"dueDate" validate:"required,isodate"`
	Status      string      `json:"status" validate:"omitempty,oneof=PENDING PAID OVERDUE CANCELLED"`
}

func (in *InvoiceRequest) normalize() {
	in.Title = sanitize.Line(in.Title)
	in.Description = sanitize.Text(in.Description)
	in.ClientID = sanitize.Line(in.ClientID)
	in.CaseID = sanitize.Line(in.CaseID)
	in.DueDate = sanitize.Line(in.DueDate)
}

// amounts holds the server-computed money fields of an invoice.
type amounts struct {
	amount, rateBps, tax, total int64
}

func (in *InvoiceRequest) validate() (amounts, map[string][]string) {
	var a amounts
	errs, _ := validation.Validate(in)

	cents, err := utils.Cents(in.Amount)
	if err != nil || cents <= 0 {
		errs = validation.Add(errs, "amount", "Must be a positive amount with at most two decimals")
	}
	a.amount = cents

	a.rateBps = DefaultTaxRateBps
	if in.TaxRate != "" {
		bps, err := utils.PercentToBps(in.TaxRate)
		if err != nil {
			errs = validation.Add(errs, "taxRate", "Must be a percentage between 0 and 100")
		}
		a.rateBps = bps
	}

	a.tax = utils.TaxCents(a.amount, a.rateBps)
	a.total = a.amount + a.tax
	return a, errs
}

type PaymentRequest struct {
	Amount        json.Number `json:"amount" validate:"required" swaggertype:"number"`
	PaymentMethod string      `json:"paymentMethod" validate:"required,oneof=CASH BANK_TRANSFER CREDIT_CARD CHECK OTHER"`
	PaymentDate   string      `json:"paymentDate" validate:"omitempty,isodate"`
	Reference     string      `json:"reference" validate:"max=120"`
}

// PaymentResult is returned after recording a payment.
type PaymentResult struct {
	Payment models.Payment `json:"payment"`
	Invoice models.Invoice `json:"invoice"`
}

type Handler struct {
	pool *database.Pool
}

func NewHandler(pool *database.Pool) *Handler {
	return &Handler{pool: pool}
}

// List Invoices godoc
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "PENDING | PAID | OVERDUE | CANCELLED | all"
// @Param        clientId  query string false "client id"
// @Param        search    query string false "invoice number or title contains"
// @Param        page      query int    false "page"
// @Param        limit     query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Invoice}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /invoices [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("i.status", c.Query("status")).
		Eq("i.client_id", c.Query("clientId")).
		Search(c.Query("search"), "i.invoice_number", "i.title")

	rows, total, err := utils.Paginate[models.Invoice](c.UserContext(), h.pool, utils.ListQuery{
		Select:  selectInvoice,
		Count:   "SELECT COUNT(*) FROM invoices i",
		Where:   w,
		OrderBy: "i.created_at DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Create Invoice godoc
// @Summary      Create invoice
// @Description  Tax and total are computed by the server. The number is INV-YYYYMM-NNN.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  InvoiceRequest  true  "Invoice payload"
// @Success      201  {object}  models.Envelope{data=models.Invoice}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /invoices [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in InvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	a, errs := in.validate()
	if errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if err := h.checkRefs(ctx, in); err != nil {
		return err
	}

	id := uuid.NewString()
	lawyerID := auth.MustUserID(c)
	now := utils.Now()
	prefix := fmt.Sprintf("INV-%s-", now.Format("200601"))

	for attempt := 1; ; attempt++ {
		number, err := utils.NextNumber(ctx, h.pool, "invoices", "invoice_number", prefix, 3)
		if err != nil {
			return err
		}
		_, err = h.pool.Exec(ctx,
			`INSERT INTO invoices (id, invoice_number, title, description, client_id, case_id, lawyer_id, amount_cents,
			 tax_rate_bps, tax_cents, total_cents, paid_cents, due_date, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
			id, number, in.Title, in.Description, in.ClientID, in.CaseID, lawyerID, a.amount,
			a.rateBps, a.tax, a.total, in.DueDate, string(models.InvoicePending), now, now)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			return err
		}
		if attempt >= utils.MaxNumberAttempts {
			return apperr.Conflict("Could not allocate an invoice number, please retry")
		}
	}

	inv, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Invoice created successfully",
		Data:    inv,
	})
}

// Get Invoice godoc
// @Summary      Invoice detail
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "invoice id"
// @Success      200  {object}  models.Envelope{data=models.Invoice}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invoices/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	inv, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: inv})
}

// Update Invoice godoc
// @Summary      Update invoice
// @Description  Recomputes tax and total. Recorded payments are kept and the total may not drop below them.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "invoice id"
// @Param        payload  body  InvoiceRequest  true  "Invoice payload"
// @Success      200  {object}  models.Envelope{data=models.Invoice}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invoices/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in InvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	a, errs := in.validate()
	if errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if _, err := h.find(ctx, id); err != nil {
		return err
	}
	if err := h.checkRefs(ctx, in); err != nil {
		return err
	}

	err := h.pool.InTx(ctx, func(tx *database.Pool) error {
		var cur models.Invoice
		if err := tx.Get(ctx, &cur, "SELECT * FROM invoices WHERE id = ?"+tx.ForUpdate(), id); err != nil {
			if database.IsNotFound(err) {
				return notFound()
			}
			return err
		}
		if a.total < cur.PaidCents {
			return fiber.NewError(fiber.StatusBadRequest, "Invoice total cannot be less than the amount already paid")
		}
		_, err := tx.Exec(ctx,
			`UPDATE invoices SET title = ?, description = ?, client_id = ?, case_id = ?, amount_cents = ?, tax_rate_bps = ?,
			 tax_cents = ?, total_cents = ?, due_date = ?, status = ?, updated_at = ?
			 WHERE id = ?`,
			in.Title, in.Description, in.ClientID, in.CaseID, a.amount, a.rateBps,
			a.tax, a.total, in.DueDate, string(nextStatus(cur, models.InvoiceStatus(in.Status), a.total)), utils.Now(), id)
		return err
	})
	if err != nil {
		return err
	}

	inv, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Invoice updated successfully", Data: inv})
}

// Delete Invoice godoc
// @Summary      Delete invoice
// @Description  Removes the invoice and its payments.
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "invoice id"
// @Success      200  {object}  models.Envelope
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invoices/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	res, err := h.pool.Transaction(c.UserContext(),
		database.Stmt("DELETE FROM payments WHERE invoice_id = ?", id),
		database.Stmt("DELETE FROM invoices WHERE id = ?", id),
	)
	if err != nil {
		return err
	}
	if res[1].RowsAffected == 0 {
		return notFound()
	}
	return c.JSON(models.Envelope{Success: true, Message: "Invoice deleted successfully"})
}

// Add Payment godoc
// @Summary      Record payment
// @Description  Adds a payment and marks the invoice PAID once fully covered. Cancelled and paid invoices are rejected.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "invoice id"
// @Param        payload  body  PaymentRequest  true  "Payment payload"
// @Success      201  {object}  models.Envelope{data=PaymentResult}
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invoices/{id}/payments [post]
func (h *Handler) AddPayment(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	var in PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.PaymentDate = sanitize.Line(in.PaymentDate)
	in.Reference = sanitize.Line(in.Reference)
	errs, _ := validation.Validate(in)
	cents, err := utils.Cents(in.Amount)
	if err != nil || cents <= 0 {
		errs = validation.Add(errs, "amount", "Must be a positive amount with at most two decimals")
	}
	if errs != nil {
		return validation.Respond(c, errs)
	}
	if in.PaymentDate == "" {
		in.PaymentDate = utils.Now().Format(validation.DateLayout)
	}

	ctx := c.UserContext()
	paymentID := uuid.NewString()
	err = h.pool.InTx(ctx, func(tx *database.Pool) error {
		var inv models.Invoice
		if err := tx.Get(ctx, &inv, "SELECT * FROM invoices WHERE id = ?"+tx.ForUpdate(), invoiceID); err != nil {
			if database.IsNotFound(err) {
				return notFound()
			}
			return err
		}
		switch inv.Status {
		case models.InvoiceCancelled:
			return fiber.NewError(fiber.StatusBadRequest, "Cannot add a payment to a cancelled invoice")
		case models.InvoicePaid:
			return fiber.NewError(fiber.StatusBadRequest, "Invoice is already paid")
		}
		if cents > inv.TotalCents-inv.PaidCents {
			return fiber.NewError(fiber.StatusBadRequest, "Payment exceeds the outstanding balance")
		}

		now := utils.Now()
		if _, err := tx.Exec(ctx,
			`INSERT INTO payments (id, invoice_id, amount_cents, payment_method, payment_date, reference, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			paymentID, invoiceID, cents, in.PaymentMethod, in.PaymentDate, in.Reference, now); err != nil {
			return err
		}
		// status first: MySQL evaluates SET assignments left to right
		_, err := tx.Exec(ctx,
			`UPDATE invoices SET status = CASE WHEN paid_cents + ? >= total_cents THEN ? ELSE status END,
			 paid_cents = paid_cents + ?, updated_at = ? WHERE id = ?`,
			cents, string(models.InvoicePaid), cents, now, invoiceID)
		return err
	})
	if err != nil {
		return err
	}

	var out PaymentResult
	if err := h.pool.Get(ctx, &out.Payment, "SELECT * FROM payments WHERE id = ?", paymentID); err != nil {
		return err
	}
	if out.Invoice, err = h.find(ctx, invoiceID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Payment recorded successfully",
		Data:    out,
	})
}

// List Payments godoc
// @Summary      Invoice payments
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "invoice id"
// @Success      200  {object}  models.Envelope{data=[]models.Payment}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invoices/{id}/payments [get]
func (h *Handler) ListPayments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	if _, err := h.find(ctx, id); err != nil {
		return err
	}

	rows := make([]models.Payment, 0)
	if err := h.pool.Query(ctx, &rows,
		"SELECT * FROM payments WHERE invoice_id = ? ORDER BY payment_date DESC, created_at DESC", id); err != nil {
		return err
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return c.JSON(models.Envelope{Success: true, Data: rows})
}

/* ============================== helpers ============================== */

func (h *Handler) find(ctx context.Context, id string) (models.Invoice, error) {
	var inv models.Invoice
	if err := h.pool.Get(ctx, &inv, selectInvoice+" WHERE i.id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return inv, notFound()
		}
		return inv, err
	}
	return inv, nil
}

func (h *Handler) checkRefs(ctx context.Context, in InvoiceRequest) error {
	if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
		return err
	}
	if in.CaseID == "" {
		return nil
	}
	ok, err := h.pool.Exists(ctx, "SELECT id FROM cases WHERE id = ?", in.CaseID)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Case not found")
	}
	return nil
}

// nextStatus keeps an explicit status as sent. Otherwise PAID follows the
// paid amount against the new total.
func nextStatus(cur models.Invoice, requested models.InvoiceStatus, total int64) models.InvoiceStatus {
	switch {
	case requested != "":
		return requested
	case cur.PaidCents > 0 && cur.PaidCents >= total:
		return models.InvoicePaid
	case cur.Status == models.InvoicePaid:
		return models.InvoicePending
	}
	return cur.Status
}

func notFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Invoice not found")
}
