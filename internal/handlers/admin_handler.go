package handlers

import (
	"net/http"

	"lending-service/internal/calendar"
	"lending-service/internal/dto"
	"lending-service/internal/service"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminHandler: управление товарами и блокировками. Роль проверяет сервис.
type AdminHandler struct {
	svc service.LendingService
	log *zap.Logger
}

func NewAdminHandler(svc service.LendingService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

// POST /items/
func (h *AdminHandler) CreateItem(c *gin.Context) {
	var req dto.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	in := service.ItemInput{
		Name:          req.Name,
		Description:   req.Description,
		TotalQuantity: req.TotalQuantity,
		Location:      req.Location,
		ImageURL:      req.ImageURL,
		IsActive:      true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if req.OwnerID != nil {
		owner, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid owner_id", []dto.FieldError{
				{Field: "owner_id", Message: "must be a UUID"},
			}))
			return
		}
		in.OwnerID = &owner
	}

	it, err := h.svc.CreateItem(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewItemResponse(it))
}

// PATCH /items/:id/
func (h *AdminHandler) UpdateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ItemPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	it, err := h.svc.UpdateItem(c.Request.Context(), id, service.ItemPatch{
		Name:          req.Name,
		Description:   req.Description,
		TotalQuantity: req.TotalQuantity,
		Location:      req.Location,
		ImageURL:      req.ImageURL,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewItemResponse(it))
}

// POST /items/:id/blocked-dates/
func (h *AdminHandler) BlockDates(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.BlockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	days := make([]civil.Date, 0, len(req.Dates))
	for _, raw := range req.Dates {
		d, err := calendar.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid date", []dto.FieldError{
				{Field: "dates", Message: "expected YYYY-MM-DD, got " + raw},
			}))
			return
		}
		days = append(days, d)
	}

	if err := h.svc.BlockDates(c.Request.Context(), id, days, req.Reason); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.BlockedDatesResponse{Blocked: dto.Dates(days)})
}

// DELETE /items/:id/blocked-dates/:date/
func (h *AdminHandler) UnblockDate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	d, err := calendar.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid date", []dto.FieldError{
			{Field: "date", Message: "expected YYYY-MM-DD"},
		}))
		return
	}
	if err := h.svc.UnblockDate(c.Request.Context(), id, d); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /items/:id/reservations/?start_date=&end_date=: активные брони за период,
// без дат: все брони товара постранично
func (h *AdminHandler) ItemReservations(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if c.Query("start_date") != "" {
		rng, fields := parseRange(c.Query("start_date"), c.Query("end_date"))
		if len(fields) > 0 {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid dates", fields))
			return
		}
		list, err := h.svc.ListActiveReservations(c.Request.Context(), id, rng)
		if err != nil {
			writeServiceError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewReservationList(list))
		return
	}

	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	list, err := h.svc.ListItemReservations(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReservationList(list))
}
