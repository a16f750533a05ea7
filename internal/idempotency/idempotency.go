// Package idempotency хранит ключи Idempotency-Key для create_reservation.
// Состояния: processing (запрос выполняется) и success (с ID созданной брони).
package idempotency

import (
	"context"
	"sync"
	"time"

	"lending-service/internal/service"

	"github.com/google/uuid"
)

const (
	statusProcessing = "processing"
	statusSuccess    = "success"

	DefaultTTL = 24 * time.Hour
	// processing живёт не дольше запроса: после падения процесса ключ освобождается сам
	DefaultProcessingTTL = time.Minute
)

type state struct {
	Status        string     `json:"status"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	ExpiresAt     time.Time  `json:"-"`
}

// Memory: для одного инстанса и тестов.
type Memory struct {
	mu         sync.Mutex
	keys       map[string]*state
	ttl        time.Duration
	processing time.Duration
	now        func() time.Time
}

var _ service.IdempotencyStore = (*Memory)(nil)

// NewMemory: ttl для успешных ключей, processing для ключей в работе
func NewMemory(ttl, processing time.Duration) *Memory {
	ttl, processing = ttls(ttl, processing)
	return &Memory{keys: make(map[string]*state), ttl: ttl, processing: processing, now: time.Now}
}

func ttls(ttl, processing time.Duration) (time.Duration, time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if processing <= 0 {
		processing = DefaultProcessingTTL
	}
	return ttl, processing
}

func (m *Memory) Reserve(ctx context.Context, key string) (*uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.keys[key]; ok && m.now().Before(st.ExpiresAt) {
		switch st.Status {
		case statusSuccess:
			id := *st.ReservationID
			return &id, nil
		case statusProcessing:
			return nil, service.ErrRequestInProgress
		}
	}

	m.keys[key] = &state{Status: statusProcessing, ExpiresAt: m.now().Add(m.processing)}
	return nil, nil
}

func (m *Memory) MarkSuccess(ctx context.Context, key string, reservationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = &state{Status: statusSuccess, ReservationID: &reservationID, ExpiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) MarkFailure(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
