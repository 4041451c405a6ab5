package appointments

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/legal-office-backend/internal/apitest"
	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/pkg/database/databasetest"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

func setup(t *testing.T) (*fiber.App, string, string) {
	t.Helper()
	pool := databasetest.New(t)
	lawyerID := apitest.SeedLawyer(t, pool, "Sara Ahmed")
	clientID := apitest.SeedClient(t, pool, "Omar Khalid", "omar@x.com")

	h := NewHandler(pool)
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(apitest.InjectAuth(lawyerID))
	app.Get("/api/appointments", h.List)
	app.Post("/api/appointments", h.Create)
	app.Get("/api/appointments/:id", h.Get)
	app.Put("/api/appointments/:id", h.Update)
	app.Delete("/api/appointments/:id", h.Delete)
	return app, lawyerID, clientID
}

func body(clientID, date, at string) map[string]any {
	return map[string]any{
		"title":    "Initial consultation",
		"clientId": clientID,
		"date":     date,
		"time":     at,
		"duration": 60,
		"type":     "consultation",
		"location": "Office 2",
	}
}

func create(t *testing.T, app *fiber.App, b map[string]any) models.Appointment {
	t.Helper()
	resp, env := apitest.Do(t, app, "POST", "/api/appointments", b)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "%s %v", env.Message, env.Errors)
	var ap models.Appointment
	apitest.DecodeData(t, env, &ap)
	return ap
}

func Test_Create_SlotConflict(t *testing.T) {
	app, lawyerID, clientID := setup(t)

	ap := create(t, app, body(clientID, "2025-01-10", "10:00"))
	assert.Equal(t, models.AppointmentScheduled, ap.Status)
	assert.Equal(t, "Omar Khalid", ap.ClientName)
	assert.Equal(t, lawyerID, ap.LawyerID)
	assert.Equal(t, models.AppointmentConsultation, ap.AppointmentType)

	resp, env := apitest.Do(t, app, "POST", "/api/appointments", body(clientID, "2025-01-10", "10:00"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", env.Code)

	// exact slot only, no duration overlap
	create(t, app, body(clientID, "2025-01-10", "10:30"))
	create(t, app, body(clientID, "2025-01-11", "10:00"))
}

func Test_CancelledFreesSlot(t *testing.T) {
	app, _, clientID := setup(t)
	ap := create(t, app, body(clientID, "2025-01-10", "10:00"))

	b := body(clientID, "2025-01-10", "10:00")
	b["status"] = "CANCELLED"
	resp, env := apitest.Do(t, app, "PUT", "/api/appointments/"+ap.ID, b)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	next := create(t, app, body(clientID, "2025-01-10", "10:00"))
	assert.NotEqual(t, ap.ID, next.ID)

	t.Run("reactivating the cancelled one now conflicts", func(t *testing.T) {
		b["status"] = "SCHEDULED"
		resp, env := apitest.Do(t, app, "PUT", "/api/appointments/"+ap.ID, b)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "CONFLICT", env.Code)
	})

	t.Run("cancelling never conflicts", func(t *testing.T) {
		b["status"] = "CANCELLED"
		b["notes"] = "client ill"
		resp, _ := apitest.Do(t, app, "PUT", "/api/appointments/"+ap.ID, b)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func Test_Update_KeepsOwnSlot(t *testing.T) {
	app, _, clientID := setup(t)
	ap := create(t, app, body(clientID, "2025-01-10", "10:00"))

	b := body(clientID, "2025-01-10", "10:00")
	b["title"] = "Follow-up"
	b["duration"] = 90
	resp, env := apitest.Do(t, app, "PUT", "/api/appointments/"+ap.ID, b)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var got models.Appointment
	apitest.DecodeData(t, env, &got)
	assert.Equal(t, "Follow-up", got.Title)
	assert.Equal(t, 90, got.Duration)
	assert.Equal(t, models.AppointmentScheduled, got.Status)

	resp, _ = apitest.Do(t, app, "PUT", "/api/appointments/nope", b)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func Test_Validation(t *testing.T) {
	app, _, clientID := setup(t)

	b := body(clientID, "2025-13-40", "25:00")
	b["duration"] = 0
	b["type"] = "lunch"
	delete(b, "title")
	resp, env := apitest.Do(t, app, "POST", "/api/appointments", b)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	for _, field := range []string{"title", "date", "time", "duration", "type"} {
		assert.Contains(t, env.Errors, field)
	}

	resp, env = apitest.Do(t, app, "POST", "/api/appointments", body("nope", "2025-01-10", "10:00"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Client not found", env.Message)
}

func Test_List_And_Delete(t *testing.T) {
	app, _, clientID := setup(t)
	create(t, app, body(clientID, "2025-01-10", "09:00"))
	late := create(t, app, body(clientID, "2025-01-10", "16:00"))
	create(t, app, body(clientID, "2025-01-09", "16:00"))

	resp, env := apitest.Do(t, app, "GET", "/api/appointments?date=2025-01-10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rows []models.Appointment
	apitest.DecodeData(t, env, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, late.ID, rows[0].ID)
	assert.Equal(t, int64(2), env.Pagination.Total)

	_, env = apitest.Do(t, app, "GET", "/api/appointments?clientId="+clientID+"&status=all", nil)
	apitest.DecodeData(t, env, &rows)
	assert.Len(t, rows, 3)
	assert.Equal(t, "2025-01-10", rows[0].AppointmentDate)

	resp, _ = apitest.Do(t, app, "DELETE", "/api/appointments/"+late.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = apitest.Do(t, app, "GET", "/api/appointments/"+late.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = apitest.Do(t, app, "DELETE", "/api/appointments/"+late.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
