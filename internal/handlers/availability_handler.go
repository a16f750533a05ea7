package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"lending-service/internal/calendar"
	"lending-service/internal/dto"
	"lending-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityHandler: публичные запросы доступности, без авторизации
type AvailabilityHandler struct {
	svc service.LendingService
	log *zap.Logger
}

func NewAvailabilityHandler(svc service.LendingService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, log: log}
}

// GET /items/:id/availability-map/?days_ahead=N
func (h *AvailabilityHandler) AvailabilityMap(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	days, ok := queryInt(c, "days_ahead")
	if !ok {
		return
	}

	m, err := h.svc.BuildAvailabilityMap(c.Request.Context(), itemID, days)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAvailabilityMapResponse(m))
}

// GET /items/:id/availability/?date=YYYY-MM-DD
func (h *AvailabilityHandler) Remaining(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	day, err := calendar.Parse(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid date", []dto.FieldError{
			{Field: "date", Message: "expected YYYY-MM-DD"},
		}))
		return
	}

	qty, err := h.svc.RemainingOn(c.Request.Context(), itemID, day)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.RemainingResponse{ItemID: itemID.String(), Date: day.String(), AvailableQty: qty})
}

// GET /items/:id/blocked-dates/?days_ahead=N
func (h *AvailabilityHandler) BlockedDates(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	days, ok := queryInt(c, "days_ahead")
	if !ok {
		return
	}

	list, err := h.svc.BlockedDates(c.Request.Context(), itemID, days)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BlockedDatesResponse{Blocked: dto.Dates(list)})
}

// POST /reservations/check/
// 200, если можно бронировать; иначе 409 с подсказками и конфликтными днями.
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var req dto.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid check request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid item_id", []dto.FieldError{
			{Field: "item_id", Message: "must be a UUID"},
		}))
		return
	}
	rng, fields := parseRange(req.StartDate, req.EndDate)
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid dates", fields))
		return
	}

	res, err := h.svc.Check(c.Request.Context(), service.CheckInput{
		ItemID:         itemID,
		Quantity:       req.Qty,
		Range:          rng,
		MaxSuggestions: req.MaxSuggestions,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	if !res.Available {
		c.JSON(http.StatusConflict, conflictBody(&service.ConflictError{
			Suggestions: res.Suggestions,
			Conflicts:   res.Conflicts,
		}))
		return
	}
	c.JSON(http.StatusOK, dto.CheckResponse{Available: true, AvailableQty: res.AvailableQty})
}

// GET /inventory_list/?search=&limit=&offset=
func (h *AvailabilityHandler) InventoryList(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	items, total, err := h.svc.ListItems(c.Request.Context(), service.ItemQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, dto.NewInventoryList(items))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{
			{Field: name, Message: "must be a UUID"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// queryInt: пустой параметр даёт 0, дальше подставит сервис
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{
			{Field: name, Message: "must be an integer"},
		}))
		return 0, false
	}
	return n, true
}

// parseRange: end_date по умолчанию равен start_date
func parseRange(start, end string) (calendar.Range, []dto.FieldError) {
	var fields []dto.FieldError
	s, err := calendar.Parse(start)
	if err != nil {
		fields = append(fields, dto.FieldError{Field: "start_date", Message: "expected YYYY-MM-DD"})
	}
	e := s
	if strings.TrimSpace(end) != "" {
		if e, err = calendar.Parse(end); err != nil {
			fields = append(fields, dto.FieldError{Field: "end_date", Message: "expected YYYY-MM-DD"})
		}
	}
	return calendar.Range{Start: s, End: e}, fields
}
