package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"lending-service/internal/service"

	"github.com/google/uuid"
)

func TestMemory_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, time.Minute)

	prev, err := m.Reserve(ctx, "k1")
	if err != nil || prev != nil {
		t.Fatalf("first reserve: %v %v", prev, err)
	}

	if _, err := m.Reserve(ctx, "k1"); !errors.Is(err, service.ErrRequestInProgress) {
		t.Fatalf("expected ErrRequestInProgress, got %v", err)
	}

	id := uuid.New()
	if err := m.MarkSuccess(ctx, "k1", id); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	prev, err = m.Reserve(ctx, "k1")
	if err != nil || prev == nil || *prev != id {
		t.Fatalf("replay: %v %v", prev, err)
	}
}

func TestMemory_FailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, time.Minute)

	if _, err := m.Reserve(ctx, "k"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := m.MarkFailure(ctx, "k"); err != nil {
		t.Fatalf("mark failure: %v", err)
	}
	if prev, err := m.Reserve(ctx, "k"); err != nil || prev != nil {
		t.Fatalf("reserve after failure: %v %v", prev, err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, time.Minute)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if _, err := m.Reserve(ctx, "k"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if prev, err := m.Reserve(ctx, "k"); err != nil || prev != nil {
		t.Fatalf("expired key must be reusable: %v %v", prev, err)
	}
}

func TestMemory_ProcessingExpiresBeforeSuccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(24*time.Hour, 30*time.Second)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if _, err := m.Reserve(ctx, "crashed"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	now = now.Add(time.Minute)
	if prev, err := m.Reserve(ctx, "crashed"); err != nil || prev != nil {
		t.Fatalf("abandoned processing key must be reusable: %v %v", prev, err)
	}

	id := uuid.New()
	if err := m.MarkSuccess(ctx, "crashed", id); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	now = now.Add(12 * time.Hour)
	prev, err := m.Reserve(ctx, "crashed")
	if err != nil || prev == nil || *prev != id {
		t.Fatalf("success must outlive processing ttl: %v %v", prev, err)
	}
}
