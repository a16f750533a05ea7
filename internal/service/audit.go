package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type capacityAuditor interface {
	AuditCapacity(ctx context.Context, horizonDays int) (int, error)
}

// AuditScheduler периодически ищет перебронированные дни (рассогласование данных).
type AuditScheduler struct {
	svc      capacityAuditor
	log      *zap.Logger
	interval time.Duration
	horizon  int
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewAuditScheduler(svc capacityAuditor, log *zap.Logger, interval time.Duration, horizonDays int) *AuditScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AuditScheduler{
		svc:      svc,
		log:      log,
		interval: interval,
		horizon:  horizonDays,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start запускает аудит в отдельной горутине; первый проход: сразу
func (a *AuditScheduler) Start(ctx context.Context) {
	a.log.Info("starting capacity audit scheduler", zap.Duration("interval", a.interval))
	go a.run(ctx)
}

// Stop останавливает планировщик и ждёт завершения текущего прохода
func (a *AuditScheduler) Stop() {
	a.log.Info("stopping capacity audit scheduler")
	close(a.stopCh)
	<-a.doneCh
}

func (a *AuditScheduler) run(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.RunOnceNow(ctx)

	for {
		select {
		case <-ticker.C:
			a.RunOnceNow(ctx)
		case <-a.stopCh:
			a.log.Info("capacity audit stopped")
			return
		case <-ctx.Done():
			a.log.Info("capacity audit cancelled")
			return
		}
	}
}

func (a *AuditScheduler) RunOnceNow(ctx context.Context) {
	flagged, err := a.svc.AuditCapacity(ctx, a.horizon)
	if err != nil {
		a.log.Error("capacity audit failed", zap.Error(err))
		return
	}
	if flagged > 0 {
		a.log.Warn("capacity audit found overbooked items", zap.Int("items", flagged))
	}
}
