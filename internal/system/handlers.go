package system

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/legal-office-backend/internal/cache"
	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

// StatsCacheKey holds the last computed table counts.
const StatsCacheKey = "system:stats"

const pingTimeout = 2 * time.Second

// Health is the body of /api/health.
type Health struct {
	Status      string       `json:"status" example:"ok"`
	Database    string       `json:"database" example:"up"`
	Connections *Connections `json:"connections,omitempty"`
}

// Connections are the database/sql pool counters at the time of the check.
type Connections struct {
	Open    int `json:"open" example:"2"`
	InUse   int `json:"inUse" example:"1"`
	Idle    int `json:"idle" example:"1"`
	MaxOpen int `json:"maxOpen" example:"10"`
}

type Handler struct {
	pool     *database.Pool
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewHandler(pool *database.Pool, c cache.Cache, ttl time.Duration) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{pool: pool, cache: c, cacheTTL: ttl}
}

// Health godoc
// @Summary      Health check
// @Description  Reports whether the database answers a ping
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.Envelope{data=Health}
// @Failure      503  {object}  models.Envelope{data=Health}
// @Router       /health [get]
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		logger.With("system").Warn("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.Envelope{
			Success: false,
			Message: "Database unavailable",
			Data:    Health{Status: "degraded", Database: "down"},
		})
	}
	st := h.pool.SQLStats()
	return c.JSON(models.Envelope{Success: true, Data: Health{
		Status:   "ok",
		Database: "up",
		Connections: &Connections{
			Open:    st.OpenConnections,
			InUse:   st.InUse,
			Idle:    st.Idle,
			MaxOpen: st.MaxOpenConnections,
		},
	}})
}

// Stats godoc
// @Summary      Database statistics
// @Description  Row counts of the main tables
// @Tags         system
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Envelope{data=database.Stats}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := logger.With("system")

	var s database.Stats
	hit, err := h.cache.Get(ctx, StatsCacheKey, &s)
	if err != nil {
		log.Warn("stats cache read failed", "error", err)
	}
	if !hit {
		if s, err = h.pool.Stats(ctx); err != nil {
			return err
		}
		if err := h.cache.Set(ctx, StatsCacheKey, s, h.cacheTTL); err != nil {
			log.Warn("stats cache write failed", "error", err)
		}
	}
	return c.JSON(models.Envelope{Success: true, Data: s})
}
