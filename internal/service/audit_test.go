package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type auditorMock struct {
	calls   atomic.Int32
	horizon atomic.Int32
}

func (m *auditorMock) AuditCapacity(ctx context.Context, horizonDays int) (int, error) {
	m.calls.Add(1)
	m.horizon.Store(int32(horizonDays))
	return 0, nil
}

func TestAuditScheduler_RunsImmediatelyAndStops(t *testing.T) {
	m := &auditorMock{}
	s := NewAuditScheduler(m, zap.NewNop(), time.Hour, 45)
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for m.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if got := m.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one pass before stop, got %d", got)
	}
	if got := m.horizon.Load(); got != 45 {
		t.Fatalf("horizon = %d, want 45", got)
	}
}

func TestAuditScheduler_StopsOnContextCancel(t *testing.T) {
	m := &auditorMock{}
	s := NewAuditScheduler(m, zap.NewNop(), time.Hour, 30)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
