package dto

import (
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/models"
	"lending-service/internal/service"

	"cloud.google.com/go/civil"
)

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func DateRanges(in []calendar.Range) []DateRange {
	out := make([]DateRange, 0, len(in))
	for _, r := range in {
		out = append(out, DateRange{Start: r.Start.String(), End: r.End.String()})
	}
	return out
}

func Dates(in []civil.Date) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		out = append(out, d.String())
	}
	return out
}

// CheckRequest: end_date необязателен, по умолчанию равен start_date
type CheckRequest struct {
	ItemID         string `json:"item_id" binding:"required"`
	Qty            int    `json:"qty" binding:"required"`
	StartDate      string `json:"start_date" binding:"required"`
	EndDate        string `json:"end_date"`
	MaxSuggestions int    `json:"max_suggestions"`
}

type CheckResponse struct {
	Available    bool `json:"available"`
	AvailableQty int  `json:"available_qty"`
}

type RemainingResponse struct {
	ItemID       string `json:"item_id"`
	Date         string `json:"date"`
	AvailableQty int    `json:"available_qty"`
}

type AvailabilityMapResponse struct {
	ItemID   string                             `json:"item_id"`
	From     string                             `json:"from"`
	Days     int                                `json:"days"`
	Calendar map[string]service.DayAvailability `json:"calendar"`
}

func NewAvailabilityMapResponse(m *service.AvailabilityMap) AvailabilityMapResponse {
	return AvailabilityMapResponse{
		ItemID:   m.ItemID.String(),
		From:     m.From.String(),
		Days:     m.Days,
		Calendar: m.Calendar,
	}
}

type BlockedDatesResponse struct {
	Blocked []string `json:"blocked"`
}

type CreateReservationResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

type DocumentResponse struct {
	Kind        string `json:"kind"`
	ObjectPath  string `json:"object_path"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

type ReservationResponse struct {
	ID          string             `json:"id"`
	ItemID      string             `json:"item_id"`
	Quantity    int32              `json:"quantity"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	Message     string             `json:"message,omitempty"`
	Contact     string             `json:"contact,omitempty"`
	SubmitterID string             `json:"submitter_id"`
	Documents   []DocumentResponse `json:"documents,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewReservationResponse(r *models.Reservation) ReservationResponse {
	rng := r.Range()
	out := ReservationResponse{
		ID:          r.ID.String(),
		ItemID:      r.ItemID.String(),
		Quantity:    r.Quantity,
		StartDate:   rng.Start.String(),
		EndDate:     rng.End.String(),
		Status:      string(r.Status),
		Priority:    string(r.Priority),
		Message:     r.Message,
		Contact:     r.Contact,
		SubmitterID: r.SubmitterID.String(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, d := range r.Documents {
		out.Documents = append(out.Documents, DocumentResponse{
			Kind:        string(d.Kind),
			ObjectPath:  d.ObjectPath,
			ContentType: d.ContentType,
			SizeBytes:   d.SizeBytes,
		})
	}
	return out
}

func NewReservationList(list []models.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, NewReservationResponse(&list[i]))
	}
	return out
}

// InventoryItem: строка inventory_list, поля как у мобильного клиента
type InventoryItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Qty      int32  `json:"qty"`
	Image    string `json:"image"`
	Location string `json:"location"`
}

func NewInventoryList(items []models.Item) []InventoryItem {
	out := make([]InventoryItem, 0, len(items))
	for _, it := range items {
		out = append(out, InventoryItem{
			ItemID:   it.ID.String(),
			Name:     it.Name,
			Qty:      it.TotalQuantity,
			Image:    it.ImageURL,
			Location: it.Location,
		})
	}
	return out
}

type ItemRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	TotalQuantity int32   `json:"total_quantity"`
	OwnerID       *string `json:"owner_id"`
	Location      string  `json:"location"`
	ImageURL      string  `json:"image_url"`
	IsActive      *bool   `json:"is_active"`
}

type ItemPatchRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	TotalQuantity *int32  `json:"total_quantity"`
	Location      *string `json:"location"`
	ImageURL      *string `json:"image_url"`
	IsActive      *bool   `json:"is_active"`
}

type ItemResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	TotalQuantity int32     `json:"total_quantity"`
	OwnerID       *string   `json:"owner_id,omitempty"`
	Location      string    `json:"location,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewItemResponse(it *models.Item) ItemResponse {
	out := ItemResponse{
		ID:            it.ID.String(),
		Name:          it.Name,
		Description:   it.Description,
		TotalQuantity: it.TotalQuantity,
		Location:      it.Location,
		ImageURL:      it.ImageURL,
		IsActive:      it.IsActive,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
	if it.OwnerID != nil {
		s := it.OwnerID.String()
		out.OwnerID = &s
	}
	return out
}

type BlockDatesRequest struct {
	Dates  []string `json:"dates" binding:"required"`
	Reason string   `json:"reason"`
}
