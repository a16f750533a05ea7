package service

import (
	"context"
	"io"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type Options struct {
	// Окна-подсказки начинаются в end+1 … end+SuggestionHorizonDays
	SuggestionHorizonDays int
	SuggestionLimit       int
	MaxSuggestions        int
	DefaultMapDays        int
	MaxMapDays            int
	// Предел длины диапазона брони и проверки, в днях
	MaxRangeDays int
	// Часовой пояс, в котором считается "сегодня" для PastDate и карты
	Location       *time.Location
	DocumentPrefix string
	StatusRetries  int
}

func DefaultOptions() Options {
	return Options{
		SuggestionHorizonDays: 30,
		SuggestionLimit:       1,
		MaxSuggestions:        5,
		DefaultMapDays:        60,
		MaxMapDays:            365,
		MaxRangeDays:          365,
		Location:              time.UTC,
		DocumentPrefix:        "reservations/",
		StatusRetries:         3,
	}
}

type CheckInput struct {
	ItemID   uuid.UUID
	Quantity int
	Range    calendar.Range
	// 0: значение по умолчанию из Options
	MaxSuggestions int
}

type CheckResult struct {
	Available    bool
	AvailableQty int
	Suggestions  []calendar.Range
	Conflicts    []civil.Date
}

type DocumentUpload struct {
	Kind        models.DocumentKind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ReserveInput struct {
	ItemID         uuid.UUID
	Quantity       int
	Range          calendar.Range
	Priority       models.Priority
	Message        string
	Contact        string
	Documents      []DocumentUpload
	IdempotencyKey string
}

type ItemInput struct {
	Name          string
	Description   string
	TotalQuantity int32
	OwnerID       *uuid.UUID
	Location      string
	ImageURL      string
	IsActive      bool
}

type ItemPatch struct {
	Name          *string
	Description   *string
	TotalQuantity *int32
	Location      *string
	ImageURL      *string
	IsActive      *bool
}

type ItemQuery struct {
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type DayStatus string

const (
	DayAvailable     DayStatus = "available"
	DayFullyReserved DayStatus = "fully_reserved"
	DayBlocked       DayStatus = "blocked"
)

type DayAvailability struct {
	Status       DayStatus `json:"status"`
	AvailableQty *int      `json:"available_qty,omitempty"`
}

type AvailabilityMap struct {
	ItemID   uuid.UUID                  `json:"item_id"`
	From     civil.Date                 `json:"from"`
	Days     int                        `json:"days"`
	Calendar map[string]DayAvailability `json:"calendar"`
}

type OverbookedDay struct {
	Date  civil.Date
	Used  int64
	Total int32
}

type LendingService interface {
	// Inventory Ledger
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, q ItemQuery) ([]models.Item, int64, error)
	CreateItem(ctx context.Context, in ItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (*models.Item, error)
	BlockDates(ctx context.Context, itemID uuid.UUID, days []civil.Date, reason string) error
	UnblockDate(ctx context.Context, itemID uuid.UUID, day civil.Date) error
	ListActiveReservations(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error)
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
	ListMyReservations(ctx context.Context, limit, offset int) ([]models.Reservation, error)
	ListItemReservations(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, reservationID uuid.UUID, to models.ReservationStatus) (*models.Reservation, error)

	// Availability Calculator
	RemainingOn(ctx context.Context, itemID uuid.UUID, day civil.Date) (int, error)
	RemainingOverRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) (int, error)
	BuildAvailabilityMap(ctx context.Context, itemID uuid.UUID, days int) (*AvailabilityMap, error)
	BlockedDates(ctx context.Context, itemID uuid.UUID, days int) ([]civil.Date, error)

	// Conflict Resolver
	Check(ctx context.Context, in CheckInput) (*CheckResult, error)
	Reserve(ctx context.Context, in ReserveInput) (*models.Reservation, error)

	// Аудит ёмкости: число товаров с перебронированными днями
	AuditCapacity(ctx context.Context, horizonDays int) (int, error)
}
