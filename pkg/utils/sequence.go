package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

// MaxNumberAttempts bounds how often a generated document number is redrawn
// after losing a unique-index race.
const MaxNumberAttempts = 5

// NextNumber returns prefix followed by the next zero-padded sequence value
// found in table.col for that prefix, e.g. CASE-2025-0007. table and col
// are trusted identifiers.
func NextNumber(ctx context.Context, pool *database.Pool, table, col, prefix string, width int) (string, error) {
	var last []string
	err := pool.Query(ctx, &last,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE ? ESCAPE '!' ORDER BY %s DESC LIMIT 1", col, table, col, col),
		likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return "", err
	}

	next := 1
	if len(last) > 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(last[0], prefix)); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, next), nil
}

// FindClient loads the picker view of a client. A missing client is a 400
// because it is always a reference coming from the request body.
func FindClient(ctx context.Context, pool *database.Pool, id string) (models.ClientOption, error) {
	var cl models.ClientOption
	err := pool.Get(ctx, &cl, "SELECT id, name, email, phone FROM clients WHERE id = ?", id)
	if database.IsNotFound(err) {
		return cl, fiber.NewError(fiber.StatusBadRequest, "Client not found")
	}
	return cl, err
}
