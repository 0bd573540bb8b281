package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		ok   bool
	}{
		{"validation", apperr.Validation("quantity must be > 0"), fiber.StatusBadRequest, true},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("product", 7)), fiber.StatusNotFound, true},
		{"insufficient stock", &apperr.InsufficientStockError{ProductID: 1, Balance: 2, Requested: 5}, fiber.StatusUnprocessableEntity, true},
		{"conflict", apperr.Conflict("order already paid"), fiber.StatusConflict, true},
		{"forbidden", apperr.Forbidden("session 3 belongs to another user"), fiber.StatusForbidden, true},
		{"fiber error", fiber.NewError(fiber.StatusForbidden, "nope"), fiber.StatusForbidden, true},
		{"unexpected", errors.New("db exploded"), fiber.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, ok := apperr.HTTPStatus(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.NotContains(t, msg, "exploded")
			}
		})
	}
}
