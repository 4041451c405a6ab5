// Package server builds the Fiber application and its route table.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/gofiber/swagger"

	"github.com/aldoetobex/legal-office-backend/internal/appointments"
	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/internal/cache"
	"github.com/aldoetobex/legal-office-backend/internal/cases"
	"github.com/aldoetobex/legal-office-backend/internal/clients"
	"github.com/aldoetobex/legal-office-backend/internal/config"
	"github.com/aldoetobex/legal-office-backend/internal/contracts"
	"github.com/aldoetobex/legal-office-backend/internal/documents"
	"github.com/aldoetobex/legal-office-backend/internal/invoices"
	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/internal/storage"
	"github.com/aldoetobex/legal-office-backend/internal/system"
	"github.com/aldoetobex/legal-office-backend/pkg/apperr"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

// bodyHeadroom is added to the upload limit for multipart framing and the
// other form fields.
const bodyHeadroom = 2 << 20

// Deps are the long-lived services the handlers share.
type Deps struct {
	Config *config.Config
	Pool   *database.Pool
	Cache  cache.Cache
	Store  storage.Store
	// StaticDir, when set, is served at /uploads (local storage only).
	StaticDir string
	// KeyPrefix is prepended to document storage keys.
	KeyPrefix string
}

// New returns the configured application with every route registered.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		AppName:      "legal-office",
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    int(cfg.UploadMaxBytes) + bodyHeadroom,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	app.Use(RequestLogger())

	if d.StaticDir != "" {
		app.Static("/uploads", d.StaticDir, fiber.Static{ByteRange: true})
	}
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	Register(app, d)
	return app
}

// Register mounts every /api route on app.
func Register(app *fiber.App, d Deps) {
	cfg := d.Config
	requireAuth := auth.RequireAuth(cfg.JWTSecret)
	api := app.Group("/api")

	// System
	sysH := system.NewHandler(d.Pool, d.Cache, cfg.CacheTTL)
	api.Get("/health", sysH.Health)
	api.Get("/stats", requireAuth, sysH.Stats)

	// Auth
	authH := auth.NewHandler(d.Pool, cfg.JWTSecret, cfg.IsProduction())
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/me", requireAuth, authH.Me)

	// Clients (static paths before /:id)
	clientH := clients.NewHandler(d.Pool, d.Cache, cfg.CacheTTL)
	cl := api.Group("/clients", requireAuth)
	cl.Get("/", clientH.List)
	cl.Post("/", clientH.Create)
	cl.Get("/list", clientH.Options)
	cl.Get("/:id", clientH.Get)
	cl.Put("/:id", clientH.Update)
	cl.Delete("/:id", clientH.Delete)

	// Cases
	caseH := cases.NewHandler(d.Pool)
	cs := api.Group("/cases", requireAuth)
	cs.Get("/", caseH.List)
	cs.Post("/", caseH.Create)
	cs.Get("/:id/history", caseH.History)
	cs.Get("/:id", caseH.Get)
	cs.Put("/:id", caseH.Update)
	cs.Delete("/:id", caseH.Delete)

	// Appointments
	apH := appointments.NewHandler(d.Pool)
	ap := api.Group("/appointments", requireAuth)
	ap.Get("/", apH.List)
	ap.Post("/", apH.Create)
	ap.Get("/:id", apH.Get)
	ap.Put("/:id", apH.Update)
	ap.Delete("/:id", apH.Delete)

	// Documents
	docH := documents.NewHandler(d.Pool, d.Store, cfg.UploadMaxBytes, d.KeyPrefix)
	doc := api.Group("/documents", requireAuth)
	doc.Get("/", docH.List)
	doc.Post("/", docH.Upload)
	doc.Get("/:id/download", docH.Download)
	doc.Get("/:id", docH.Get)
	doc.Put("/:id", docH.Update)
	doc.Delete("/:id", docH.Delete)

	// Contracts
	ctH := contracts.NewHandler(d.Pool)
	ct := api.Group("/contracts", requireAuth)
	ct.Get("/", ctH.List)
	ct.Post("/", ctH.Create)
	ct.Get("/:id", ctH.Get)
	ct.Put("/:id", ctH.Update)
	ct.Delete("/:id", ctH.Delete)

	// Invoices and payments
	invH := invoices.NewHandler(d.Pool)
	inv := api.Group("/invoices", requireAuth)
	inv.Get("/", invH.List)
	inv.Post("/", invH.Create)
	inv.Get("/:id/payments", invH.ListPayments)
	inv.Post("/:id/payments", invH.AddPayment)
	inv.Get("/:id", invH.Get)
	inv.Put("/:id", invH.Update)
	inv.Delete("/:id", invH.Delete)
}

// RequestLogger logs one line per request with its status and latency.
func RequestLogger() fiber.Handler {
	log := logger.With("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// the error handler has not run yet; derive the status it will use
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else if ae, ok := apperr.As(err); ok {
				status = ae.Status
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		log.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"ip", c.IP(),
		)
		return err
	}
}
