// Package apperr holds the error taxonomy shared by the domain services and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError reports bad input: non-positive quantities, missing
// required fields, out-of-range query parameters.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown reference inside the caller's tenant.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError is returned when an outbound move would drive a
// balance below zero and negative balances are disallowed.
type InsufficientStockError struct {
	ProductID uint
	Balance   float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: balance %.3f, requested %.3f",
		e.ProductID, e.Balance, e.Requested)
}

// DataQualityError marks a record that cannot take part in a batch
// computation. It is collected and logged, never returned to the caller.
type DataQualityError struct {
	ProductID   uint
	ProductName string
	Reason      string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("product %d (%s): %s", e.ProductID, e.ProductName, e.Reason)
}

// ConflictError reports an illegal state transition, e.g. paying an order
// twice or settling a canceled payable.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports an authenticated caller acting on a record their
// role does not cover, e.g. closing another cashier's session.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func Forbidden(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps err onto a status code and a client-safe message.
// ok is false for unexpected errors, whose message must not leak.
func HTTPStatus(err error) (code int, msg string, ok bool) {
	var (
		fe  *fiber.Error
		ve  *ValidationError
		nf  *NotFoundError
		ise *InsufficientStockError
		ce  *ConflictError
		fb  *ForbiddenError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message, true
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Error(), true
	case errors.As(err, &nf):
		return fiber.StatusNotFound, nf.Error(), true
	case errors.As(err, &ise):
		return fiber.StatusUnprocessableEntity, ise.Error(), true
	case errors.As(err, &ce):
		return fiber.StatusConflict, ce.Error(), true
	case errors.As(err, &fb):
		return fiber.StatusForbidden, fb.Error(), true
	}
	return fiber.StatusInternalServerError, "unexpected server error", false
}
