package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/legal-office-backend/internal/apitest"
	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/database/databasetest"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

type fixture struct {
	app      *fiber.App
	pool     *database.Pool
	clientID string
}

func setup(t *testing.T) fixture {
	t.Helper()
	pool := databasetest.New(t)
	lawyerID := apitest.SeedLawyer(t, pool, "Sara Ahmed")
	clientID := apitest.SeedClient(t, pool, "Omar Khalid", "omar@x.com")

	h := NewHandler(pool)
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(apitest.InjectAuth(lawyerID))
	app.Get("/api/invoices", h.List)
	app.Post("/api/invoices", h.Create)
	app.Get("/api/invoices/:id/payments", h.ListPayments)
	app.Post("/api/invoices/:id/payments", h.AddPayment)
	app.Get("/api/invoices/:id", h.Get)
	app.Put("/api/invoices/:id", h.Update)
	app.Delete("/api/invoices/:id", h.Delete)
	return fixture{app: app, pool: pool, clientID: clientID}
}

func (f fixture) body() map[string]any {
	return map[string]any{
		"title":    "Retainer, January",
		"clientId": f.clientID,
		"amount":   1000,
		"dueDate":  "2025-02-01",
	}
}

func (f fixture) create(t *testing.T, body map[string]any) models.Invoice {
	t.Helper()
	resp, env := apitest.Do(t, f.app, "POST", "/api/invoices", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "%s %v", env.Message, env.Errors)
	var inv models.Invoice
	apitest.DecodeData(t, env, &inv)
	return inv
}

func (f fixture) pay(t *testing.T, id string, amount any) (int, apitest.Envelope) {
	t.Helper()
	resp, env := apitest.Do(t, f.app, "POST", "/api/invoices/"+id+"/payments", map[string]any{
		"amount": amount, "paymentMethod": "BANK_TRANSFER", "paymentDate": "2025-01-20", "reference": "TRX-1",
	})
	return resp.StatusCode, env
}

func Test_Create_ComputesTotals(t *testing.T) {
	f := setup(t)
	month := time.Now().UTC().Format("200601")

	inv := f.create(t, f.body())
	assert.Equal(t, "INV-"+month+"-001", inv.InvoiceNumber)
	assert.Equal(t, int64(100000), inv.AmountCents)
	assert.Equal(t, int64(DefaultTaxRateBps), inv.TaxRateBps)
	assert.Equal(t, int64(15000), inv.TaxCents)
	assert.Equal(t, int64(115000), inv.TotalCents)
	assert.Zero(t, inv.PaidCents)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.Equal(t, "Omar Khalid", inv.ClientName)

	b := f.body()
	b["amount"] = "99.99"
	b["taxRate"] = 5
	inv = f.create(t, b)
	assert.Equal(t, "INV-"+month+"-002", inv.InvoiceNumber)
	assert.Equal(t, int64(9999), inv.AmountCents)
	assert.Equal(t, int64(500), inv.TaxCents) // 499.95 rounds up
	assert.Equal(t, int64(10499), inv.TotalCents)

	b["taxRate"] = 0
	inv = f.create(t, b)
	assert.Zero(t, inv.TaxCents)
	assert.Equal(t, inv.AmountCents, inv.TotalCents)
}

func Test_Create_Validation(t *testing.T) {
	f := setup(t)

	b := f.body()
	b["amount"] = 0
	b["taxRate"] = 150
	b["dueDate"] = "soon"
	resp, env := apitest.Do(t, f.app, "POST", "/api/invoices", b)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	for _, field := range []string{"amount", "taxRate", "dueDate"} {
		assert.Contains(t, env.Errors, field)
	}

	b = f.body()
	b["caseId"] = "nope"
	resp, env = apitest.Do(t, f.app, "POST", "/api/invoices", b)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Case not found", env.Message)
}

func Test_Payments(t *testing.T) {
	f := setup(t)
	inv := f.create(t, f.body())

	status, env := f.pay(t, inv.ID, 500)
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var res PaymentResult
	apitest.DecodeData(t, env, &res)
	assert.Equal(t, int64(50000), res.Payment.AmountCents)
	assert.Equal(t, models.PayBankTransfer, res.Payment.PaymentMethod)
	assert.Equal(t, int64(50000), res.Invoice.PaidCents)
	assert.Equal(t, models.InvoicePending, res.Invoice.Status)

	t.Run("overpayment", func(t *testing.T) {
		status, _ := f.pay(t, inv.ID, 651)
		assert.Equal(t, fiber.StatusBadRequest, status)
	})

	status, env = f.pay(t, inv.ID, "650")
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	apitest.DecodeData(t, env, &res)
	assert.Equal(t, int64(115000), res.Invoice.PaidCents)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)

	t.Run("already paid", func(t *testing.T) {
		status, env := f.pay(t, inv.ID, 1)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Invoice is already paid", env.Message)
	})

	resp, env := apitest.Do(t, f.app, "GET", "/api/invoices/"+inv.ID+"/payments", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var pays []models.Payment
	apitest.DecodeData(t, env, &pays)
	assert.Len(t, pays, 2)

	status, _ = f.pay(t, "nope", 1)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func Test_Payment_CancelledInvoice(t *testing.T) {
	f := setup(t)
	inv := f.create(t, f.body())

	b := f.body()
	b["status"] = "CANCELLED"
	resp, env := apitest.Do(t, f.app, "PUT", "/api/invoices/"+inv.ID, b)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	status, env := f.pay(t, inv.ID, 10)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)

	var n int64
	require.NoError(t, f.pool.Query(context.Background(), &n, "SELECT COUNT(*) FROM payments"))
	assert.Zero(t, n)
}

func Test_Update_List_Delete(t *testing.T) {
	f := setup(t)
	inv := f.create(t, f.body())
	f.create(t, f.body())

	b := f.body()
	b["amount"] = 2000
	b["taxRate"] = 10
	b["status"] = "OVERDUE"
	resp, env := apitest.Do(t, f.app, "PUT", "/api/invoices/"+inv.ID, b)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var got models.Invoice
	apitest.DecodeData(t, env, &got)
	assert.Equal(t, int64(220000), got.TotalCents)
	assert.Equal(t, models.InvoiceOverdue, got.Status)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)

	resp, env = apitest.Do(t, f.app, "GET", "/api/invoices?status=OVERDUE", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rows []models.Invoice
	apitest.DecodeData(t, env, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, inv.ID, rows[0].ID)

	_, env = apitest.Do(t, f.app, "GET", "/api/invoices?clientId="+f.clientID, nil)
	assert.Equal(t, int64(2), env.Pagination.Total)

	status, _ := f.pay(t, inv.ID, 100)
	require.Equal(t, fiber.StatusCreated, status)

	resp, _ = apitest.Do(t, f.app, "DELETE", "/api/invoices/"+inv.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var n int64
	require.NoError(t, f.pool.Query(context.Background(), &n, "SELECT COUNT(*) FROM payments WHERE invoice_id = ?", inv.ID))
	assert.Zero(t, n)
	resp, _ = apitest.Do(t, f.app, "GET", "/api/invoices/"+inv.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = apitest.Do(t, f.app, "DELETE", "/api/invoices/"+inv.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func Test_Update_KeepsPaidAmountConsistent(t *testing.T) {
	f := setup(t)
	inv := f.create(t, f.body())

	status, env := f.pay(t, inv.ID, 1000)
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	put := func(amount, taxRate any) (int, models.Invoice, apitest.Envelope) {
		b := f.body()
		b["amount"] = amount
		b["taxRate"] = taxRate
		resp, env := apitest.Do(t, f.app, "PUT", "/api/invoices/"+inv.ID, b)
		var got models.Invoice
		if resp.StatusCode == fiber.StatusOK {
			apitest.DecodeData(t, env, &got)
		}
		return resp.StatusCode, got, env
	}

	t.Run("total below paid", func(t *testing.T) {
		code, _, env := put(100, 15)
		assert.Equal(t, fiber.StatusBadRequest, code)
		assert.Equal(t, "Invoice total cannot be less than the amount already paid", env.Message)

		resp, env := apitest.Do(t, f.app, "GET", "/api/invoices/"+inv.ID, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var got models.Invoice
		apitest.DecodeData(t, env, &got)
		assert.Equal(t, int64(115000), got.TotalCents)
		assert.Equal(t, int64(100000), got.PaidCents)
	})

	code, got, env := put(1000, 0)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.Equal(t, int64(100000), got.TotalCents)
	assert.Equal(t, models.InvoicePaid, got.Status)

	code, got, env = put(1200, 0)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.Equal(t, models.InvoicePending, got.Status)

	status, env = f.pay(t, inv.ID, 200)
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var res PaymentResult
	apitest.DecodeData(t, env, &res)
	assert.Equal(t, int64(120000), res.Invoice.PaidCents)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
}
