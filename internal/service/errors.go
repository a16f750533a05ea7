package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lending-service/internal/calendar"

	"cloud.google.com/go/civil"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrInvalidRequest      = errors.New("invalid request")
	ErrPastDate            = errors.New("start date is in the past")
	ErrItemNotFound        = errors.New("item not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("requested quantity is not available for the selected dates")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	ErrRequestInProgress = errors.New("request with this idempotency key is already being processed")

	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be > 0", ErrInvalidRequest)
	ErrInvalidRange     = fmt.Errorf("%w: end date before start date", ErrInvalidRequest)
	ErrExceedsTotal     = fmt.Errorf("%w: quantity exceeds item total quantity", ErrInvalidRequest)
	ErrItemInactive     = fmt.Errorf("%w: item is not available for lending", ErrInvalidRequest)
	ErrDocumentsBlocked = fmt.Errorf("%w: document uploads are not enabled", ErrInvalidRequest)
)

// ConflictError: отказ по ёмкости или заблокированным дням.
// Suggestions: альтернативные окна той же длины. Conflicts: конкретные дни.
type ConflictError struct {
	Suggestions []calendar.Range
	Conflicts   []civil.Date
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return ErrConflict.Error()
	}
	days := make([]string, 0, len(e.Conflicts))
	for _, d := range e.Conflicts {
		days = append(days, d.String())
	}
	return ErrConflict.Error() + ": " + strings.Join(days, ", ")
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

var passthrough = []error{
	ErrUnauthorized, ErrForbidden, ErrInvalidRequest, ErrPastDate,
	ErrItemNotFound, ErrReservationNotFound, ErrInvalidTransition,
	ErrConflict, ErrStorageUnavailable, ErrRequestInProgress,
	context.Canceled, context.DeadlineExceeded,
}

// storageErr оборачивает всё, что пришло из хранилища, в ErrStorageUnavailable.
// Доменные ошибки и отмена контекста проходят как есть.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// checkRange: start <= end и не больше maxDays дней (0: без предела)
func checkRange(rng calendar.Range, maxDays int) error {
	if _, err := calendar.NewRange(rng.Start, rng.End); err != nil {
		return ErrInvalidRange
	}
	if maxDays > 0 && rng.Days() > maxDays {
		return fmt.Errorf("%w: range must not exceed %d days", ErrInvalidRequest, maxDays)
	}
	return nil
}
