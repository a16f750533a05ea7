package handlers

import (
	"context"
	"errors"
	"net/http"

	"lending-service/internal/dto"
	"lending-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const retryAfterSeconds = "5"

// writeServiceError: единая таблица ошибок сервиса в HTTP-статусы
func writeServiceError(c *gin.Context, log *zap.Logger, err error) {
	var ce *service.ConflictError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, conflictBody(ce))
	case errors.Is(err, service.ErrPastDate):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(service.ErrPastDate.Error(), []dto.FieldError{
			{Field: "start_date", Message: "must not be in the past"},
		}))
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("operation is not allowed for this role"))
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(service.ErrItemNotFound.Error()))
	case errors.Is(err, service.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(service.ErrReservationNotFound.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.NewInvalidTransitionError(err.Error()))
	case errors.Is(err, service.ErrRequestInProgress):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, dto.NewRequestInProgressError(service.ErrRequestInProgress.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrStorageUnavailable):
		log.Error("storage unavailable", zap.String("route", c.FullPath()), zap.Error(err))
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, dto.NewUnavailableError("service temporarily unavailable, retry later"))
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", zap.String("route", c.FullPath()))
		c.JSON(http.StatusGatewayTimeout, dto.NewTimeoutError("request timed out"))
	case errors.Is(err, context.Canceled):
		// клиент ушёл, ответ никто не прочитает
		c.Status(http.StatusRequestTimeout)
	default:
		log.Error("unexpected service error", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func conflictBody(ce *service.ConflictError) dto.ConflictResponse {
	return dto.ConflictResponse{
		BaseError:   dto.NewConflictError(ce.Error()),
		Detail:      service.ErrConflict.Error(),
		Suggestions: dto.DateRanges(ce.Suggestions),
		Blocked:     dto.Dates(ce.Conflicts),
	}
}
