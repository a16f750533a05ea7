package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"lending-service/internal/dto"
	"lending-service/internal/models"
	"lending-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxDocumentBytes  = 10 << 20
	maxMultipartBytes = 2*maxDocumentBytes + 1<<20
)

type ReservationHandler struct {
	svc service.LendingService
	log *zap.Logger
}

func NewReservationHandler(svc service.LendingService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, log: log}
}

// POST /create_reservation/ (multipart/form-data)
// Поля: itemID, quantity, start_date, end_date, priority, message, contact,
// файлы letter_image и valid_id_image. Заголовок Idempotency-Key необязателен.
func (h *ReservationHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
	if err := c.Request.ParseMultipartForm(maxDocumentBytes); err != nil {
		h.log.Warn("invalid multipart body", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid multipart body", []dto.FieldError{}))
		return
	}

	var fields []dto.FieldError
	itemID, err := uuid.Parse(strings.TrimSpace(c.PostForm("itemID")))
	if err != nil {
		fields = append(fields, dto.FieldError{Field: "itemID", Message: "must be a UUID"})
	}
	qty, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity")))
	if err != nil {
		fields = append(fields, dto.FieldError{Field: "quantity", Message: "must be an integer"})
	}
	rng, rangeFields := parseRange(c.PostForm("start_date"), c.PostForm("end_date"))
	fields = append(fields, rangeFields...)
	priority, ok := parsePriority(c.PostForm("priority"))
	if !ok {
		fields = append(fields, dto.FieldError{Field: "priority", Message: "must be Low, Medium or High"})
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid reservation request", fields))
		return
	}

	docs, closers, verr := formDocuments(c)
	defer func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}()
	if verr != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid document", []dto.FieldError{*verr}))
		return
	}

	res, err := h.svc.Reserve(c.Request.Context(), service.ReserveInput{
		ItemID:         itemID,
		Quantity:       qty,
		Range:          rng,
		Priority:       priority,
		Message:        c.PostForm("message"),
		Contact:        c.PostForm("contact"),
		Documents:      docs,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateReservationResponse{
		TransactionID: res.ID.String(),
		Status:        string(res.Status),
	})
}

// parsePriority: Low/Medium/High без учёта регистра, пустое значение даёт low
func parsePriority(raw string) (models.Priority, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return models.PriorityLow, true
	}
	p := models.Priority(v)
	return p, p.Valid()
}

var documentFields = []struct {
	field string
	kind  models.DocumentKind
}{
	{"letter_image", models.DocumentLetter},
	{"valid_id_image", models.DocumentValidID},
}

func formDocuments(c *gin.Context) ([]service.DocumentUpload, []multipart.File, *dto.FieldError) {
	var (
		docs  []service.DocumentUpload
		files []multipart.File
	)
	for _, df := range documentFields {
		fh, err := c.FormFile(df.field)
		if err != nil {
			// файл необязателен
			continue
		}
		if fh.Size > maxDocumentBytes {
			return nil, files, &dto.FieldError{Field: df.field, Message: "file is too large"}
		}
		ct := fh.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "image/") && ct != "application/pdf" {
			return nil, files, &dto.FieldError{Field: df.field, Message: "must be an image or PDF"}
		}
		f, err := fh.Open()
		if err != nil {
			return nil, files, &dto.FieldError{Field: df.field, Message: "cannot read file"}
		}
		files = append(files, f)
		docs = append(docs, service.DocumentUpload{
			Kind:        df.kind,
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		})
	}
	return docs, files, nil
}

// GET /reservations/
func (h *ReservationHandler) ListMine(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	list, err := h.svc.ListMyReservations(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReservationList(list))
}

// GET /reservations/:id/
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.GetReservation(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReservationResponse(res))
}

// PATCH /reservations/:id/status/
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	to := models.ReservationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !to.Valid() {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("unknown status", []dto.FieldError{
			{Field: "status", Message: "must be one of pending, approved, in_use, rejected, cancelled, returned"},
		}))
		return
	}

	res, err := h.svc.UpdateStatus(c.Request.Context(), id, to)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReservationResponse(res))
}
