package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/metrics"
	"lending-service/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("lending-service/service")

// Resolver принимает или отклоняет запрос и ищет альтернативные окна.
type Resolver struct {
	ledger *Ledger
	calc   *Calculator
	log    *zap.Logger
	opts   Options
	now    func() time.Time
}

func NewResolver(ledger *Ledger, calc *Calculator, log *zap.Logger, opts Options) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{ledger: ledger, calc: calc, log: log, opts: opts, now: time.Now}
}

// attachFunc вызывается после предварительной проверки и до коммита;
// возвращает метаданные документов для записи вместе с бронью.
type attachFunc func(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationDocument, error)

func (r *Resolver) validate(qty int, rng calendar.Range) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := checkRange(rng, r.opts.MaxRangeDays); err != nil {
		return err
	}
	if rng.Start.Before(calendar.Today(r.now(), r.opts.Location)) {
		return ErrPastDate
	}
	return nil
}

func (r *Resolver) suggestionLimit(requested int) (int, error) {
	if requested == 0 {
		return r.opts.SuggestionLimit, nil
	}
	if requested < 0 || requested > r.opts.MaxSuggestions {
		return 0, fmt.Errorf("%w: max_suggestions must be between 1 and %d", ErrInvalidRequest, r.opts.MaxSuggestions)
	}
	return requested, nil
}

// Check: предварительная проверка по снимку. Accept здесь ничего не резервирует.
func (r *Resolver) Check(ctx context.Context, in CheckInput) (*CheckResult, error) {
	ctx, span := tracer.Start(ctx, "resolver.Check", trace.WithAttributes(
		attribute.String("item_id", in.ItemID.String()),
		attribute.Int("quantity", in.Quantity),
		attribute.String("range", in.Range.String()),
	))
	defer span.End()

	if err := r.validate(in.Quantity, in.Range); err != nil {
		return nil, err
	}
	limit, err := r.suggestionLimit(in.MaxSuggestions)
	if err != nil {
		return nil, err
	}

	item, err := r.ledger.GetItem(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrItemInactive
	}
	if in.Quantity > int(item.TotalQuantity) {
		return nil, ErrExceedsTotal
	}

	snap, err := r.ledger.snapshot(ctx, item, searchWindow(in.Range, r.opts.SuggestionHorizonDays))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := r.evaluate(snap, in.Range, in.Quantity, limit)
	if res.Available {
		metrics.CheckOutcomes.WithLabelValues("accepted").Inc()
	} else {
		metrics.CheckOutcomes.WithLabelValues("rejected").Inc()
	}
	span.SetAttributes(attribute.Bool("available", res.Available), attribute.Int("suggestions", len(res.Suggestions)))
	return res, nil
}

func (r *Resolver) evaluate(snap *capacitySnapshot, rng calendar.Range, qty, limit int) *CheckResult {
	avail, anomalies := snap.remainingOver(rng)
	r.calc.flagAnomalies(snap.item.ID, anomalies)

	conflicts := snap.conflicts(rng, qty)
	for _, d := range conflicts {
		if snap.isBlocked(d) {
			avail = 0
			break
		}
	}
	if len(conflicts) == 0 {
		return &CheckResult{Available: true, AvailableQty: avail, Suggestions: []calendar.Range{}, Conflicts: []civil.Date{}}
	}
	return &CheckResult{
		Available:    false,
		AvailableQty: avail,
		Suggestions:  snap.suggest(rng, qty, r.opts.SuggestionHorizonDays, limit),
		Conflicts:    conflicts,
	}
}

// Reserve: валидация, предварительный Check, затем атомарная запись в Ledger.
// Конфликт на коммите возвращается с заново посчитанными подсказками.
func (r *Resolver) Reserve(ctx context.Context, nr NewReservation, attach attachFunc) (*models.Reservation, error) {
	ctx, span := tracer.Start(ctx, "resolver.Reserve", trace.WithAttributes(
		attribute.String("item_id", nr.ItemID.String()),
		attribute.Int("quantity", nr.Quantity),
		attribute.String("range", nr.Range.String()),
	))
	defer span.End()

	if !nr.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, nr.Priority)
	}

	check, err := r.Check(ctx, CheckInput{ItemID: nr.ItemID, Quantity: nr.Quantity, Range: nr.Range})
	if err != nil {
		return nil, err
	}
	if !check.Available {
		metrics.ReservationConflicts.WithLabelValues("advisory").Inc()
		return nil, &ConflictError{Suggestions: check.Suggestions, Conflicts: check.Conflicts}
	}

	if nr.ID == uuid.Nil {
		nr.ID = uuid.New()
	}
	if attach != nil {
		docs, err := attach(ctx, nr.ID)
		if err != nil {
			return nil, err
		}
		nr.Documents = docs
	}

	created, err := r.ledger.CreateReservation(ctx, nr)
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			metrics.ReservationConflicts.WithLabelValues("commit").Inc()
			r.log.Info("reservation conflicted at commit",
				zap.String("item_id", nr.ItemID.String()),
				zap.Int("quantity", nr.Quantity),
				zap.Stringer("range", nr.Range),
			)
			ce.Suggestions = r.freshSuggestions(ctx, nr)
			return nil, ce
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.ReservationsCreated.Inc()
	return created, nil
}

// freshSuggestions: новый снимок после проигранной гонки. Ошибка чтения
// не превращает Conflict в сбой: подсказок просто не будет.
func (r *Resolver) freshSuggestions(ctx context.Context, nr NewReservation) []calendar.Range {
	item, err := r.ledger.GetItem(ctx, nr.ItemID)
	if err != nil {
		return []calendar.Range{}
	}
	snap, err := r.ledger.snapshot(ctx, item, searchWindow(nr.Range, r.opts.SuggestionHorizonDays))
	if err != nil {
		r.log.Warn("suggestions after commit conflict failed", zap.Error(err))
		return []calendar.Range{}
	}
	return snap.suggest(nr.Range, nr.Quantity, r.opts.SuggestionHorizonDays, r.opts.SuggestionLimit)
}
