package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ItemID        uuid.UUID `json:"item_id"`
	SubmitterID   uuid.UUID `json:"submitter_id"`
	Quantity      int32     `json:"quantity"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Priority      string    `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationStatusChangedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ItemID        uuid.UUID `json:"item_id"`
	SubmitterID   uuid.UUID `json:"submitter_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedBy     uuid.UUID `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EventBus: уведомления о бронях для внешней рассылки (push, почта)
type EventBus interface {
	PublishReservationCreated(ctx context.Context, e ReservationCreatedEvent) error
	PublishReservationStatusChanged(ctx context.Context, e ReservationStatusChangedEvent) error
}

// AvailabilityCache: кэш карты доступности. Check/Reserve его не читают.
// Invalidate увеличивает поколение товара; записи старых поколений не читаются.
type AvailabilityCache interface {
	Generation(ctx context.Context, itemID uuid.UUID) (int64, error)
	Get(ctx context.Context, itemID uuid.UUID, field string) ([]byte, bool, error)
	Set(ctx context.Context, itemID uuid.UUID, field string, val []byte) error
	Invalidate(ctx context.Context, itemID uuid.UUID) error
}

// DocumentStore: объектное хранилище для сканов письма и удостоверения
type DocumentStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader, meta map[string]string) (int64, error)
	Delete(ctx context.Context, path string) error
}

// IdempotencyStore: ключи Idempotency-Key для create_reservation.
// Reserve возвращает ID ранее созданной брони, если ключ уже отработал.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (*uuid.UUID, error)
	MarkSuccess(ctx context.Context, key string, reservationID uuid.UUID) error
	MarkFailure(ctx context.Context, key string) error
}
