package service

import (
	"context"
	"fmt"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/models"
	"lending-service/internal/repository"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// farFuture: верхняя граница при поиске всех будущих активных броней
var farFuture = civil.Date{Year: 9999, Month: time.December, Day: 31}

// Ledger: единственный писатель товаров, броней и блокировок.
type Ledger struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewLedger(repo *repository.Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

type NewReservation struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	Quantity    int
	Range       calendar.Range
	Priority    models.Priority
	Message     string
	Contact     string
	SubmitterID uuid.UUID
	Documents   []models.ReservationDocument
}

func (l *Ledger) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	it, err := l.repo.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, storageErr("get item", err)
	}
	if it == nil {
		return nil, ErrItemNotFound
	}
	return it, nil
}

func (l *Ledger) ListActiveReservations(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error) {
	if _, err := l.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	list, err := l.repo.Reservations.ListActive(ctx, itemID, rng)
	if err != nil {
		return nil, storageErr("list active reservations", err)
	}
	return list, nil
}

// snapshot: согласованный на чтение срез занятости (вне транзакции).
func (l *Ledger) snapshot(ctx context.Context, item *models.Item, window calendar.Range) (*capacitySnapshot, error) {
	return loadSnapshot(ctx, l.repo, item, window)
}

// CreateReservation: атомарная проверка и запись брони.
// Строка товара блокируется (FOR UPDATE), ёмкость и блокировки перепроверяются
// по закоммиченному состоянию, бронь и документы пишутся одной транзакцией.
func (l *Ledger) CreateReservation(ctx context.Context, nr NewReservation) (*models.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateReservation", trace.WithAttributes(
		attribute.String("item_id", nr.ItemID.String()),
		attribute.Int("quantity", nr.Quantity),
	))
	defer span.End()

	if nr.ID == uuid.Nil {
		nr.ID = uuid.New()
	}
	now := l.now().UTC()

	var created *models.Reservation
	err := l.repo.WithTx(ctx, func(tx *repository.Repository) error {
		item, err := tx.Items.LockByID(ctx, nr.ItemID)
		if err != nil {
			return storageErr("lock item", err)
		}
		if item == nil {
			return ErrItemNotFound
		}
		if !item.IsActive {
			return ErrItemInactive
		}
		if nr.Quantity > int(item.TotalQuantity) {
			return ErrExceedsTotal
		}

		snap, err := loadSnapshot(ctx, tx, item, nr.Range)
		if err != nil {
			return err
		}
		if conflicts := snap.conflicts(nr.Range, nr.Quantity); len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		res := &models.Reservation{
			ID:          nr.ID,
			ItemID:      nr.ItemID,
			Quantity:    int32(nr.Quantity),
			StartDate:   calendar.ToTime(nr.Range.Start),
			EndDate:     calendar.ToTime(nr.Range.End),
			Status:      models.ReservationPending,
			Priority:    nr.Priority,
			Message:     nr.Message,
			Contact:     nr.Contact,
			SubmitterID: nr.SubmitterID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Reservations.Create(ctx, res); err != nil {
			return storageErr("create reservation", err)
		}

		docs := make([]models.ReservationDocument, len(nr.Documents))
		for i, d := range nr.Documents {
			d.ReservationID = res.ID
			if d.ID == uuid.Nil {
				d.ID = uuid.New()
			}
			d.CreatedAt = now
			docs[i] = d
		}
		if err := tx.Documents.CreateBatch(ctx, docs); err != nil {
			return storageErr("create reservation documents", err)
		}
		res.Documents = docs

		created = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, storageErr("commit reservation", err)
	}
	return created, nil
}

func (l *Ledger) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	res, err := l.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (l *Ledger) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	list, err := l.repo.Reservations.ListBySubmitter(ctx, submitterID, limit, offset)
	return list, storageErr("list reservations", err)
}

func (l *Ledger) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	if _, err := l.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	list, err := l.repo.Reservations.ListByItem(ctx, itemID, limit, offset)
	return list, storageErr("list reservations", err)
}

// UpdateStatus применяет переход условным UPDATE по текущему статусу.
// Если статус успели поменять параллельно: перечитываем и пробуем снова.
func (l *Ledger) UpdateStatus(ctx context.Context, id uuid.UUID, to models.ReservationStatus, retries int) (*models.Reservation, models.ReservationStatus, error) {
	if !to.Valid() {
		return nil, "", fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, to)
	}
	if retries < 1 {
		retries = 1
	}

	for attempt := 0; attempt < retries; attempt++ {
		res, err := l.GetReservation(ctx, id)
		if err != nil {
			return nil, "", err
		}
		from := res.Status
		if !from.CanTransitionTo(to) {
			return nil, from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}

		ok, err := l.repo.Reservations.UpdateStatus(ctx, id, from, to)
		if err != nil {
			return nil, from, storageErr("update reservation status", err)
		}
		if ok {
			res.Status = to
			res.UpdatedAt = l.now().UTC()
			return res, from, nil
		}
	}
	return nil, "", fmt.Errorf("%w: reservation status changed concurrently", ErrConflict)
}

func (l *Ledger) CreateItem(ctx context.Context, it *models.Item) error {
	return storageErr("create item", l.repo.Items.Create(ctx, it))
}

// UpdateItem: изменение карточки товара. Уменьшение total_quantity ниже
// пиковой будущей занятости отклоняется; проверка под блокировкой строки.
func (l *Ledger) UpdateItem(ctx context.Context, itemID uuid.UUID, fields map[string]any, today civil.Date) (*models.Item, error) {
	err := l.repo.WithTx(ctx, func(tx *repository.Repository) error {
		item, err := tx.Items.LockByID(ctx, itemID)
		if err != nil {
			return storageErr("lock item", err)
		}
		if item == nil {
			return ErrItemNotFound
		}

		if v, ok := fields["total_quantity"]; ok {
			newTotal := v.(int32)
			if newTotal < item.TotalQuantity {
				peak, err := peakUsage(ctx, tx, item, today)
				if err != nil {
					return err
				}
				if int64(newTotal) < peak {
					return fmt.Errorf("%w: total quantity %d is below reserved quantity %d", ErrConflict, newTotal, peak)
				}
			}
		}

		if _, err := tx.Items.Update(ctx, itemID, fields); err != nil {
			return storageErr("update item", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("update item", err)
	}
	return l.GetItem(ctx, itemID)
}

func peakUsage(ctx context.Context, repo *repository.Repository, item *models.Item, today civil.Date) (int64, error) {
	active, err := repo.Reservations.ListActive(ctx, item.ID, calendar.Range{Start: today, End: farFuture})
	if err != nil {
		return 0, storageErr("list active reservations", err)
	}
	if len(active) == 0 {
		return 0, nil
	}
	last := today
	for i := range active {
		if end := active[i].Range().End; end.After(last) {
			last = end
		}
	}
	snap := buildSnapshot(*item, calendar.Range{Start: today, End: last}, active, nil)
	var peak int64
	for _, u := range snap.used {
		if u > peak {
			peak = u
		}
	}
	return peak, nil
}

func (l *Ledger) BlockDates(ctx context.Context, itemID uuid.UUID, days []civil.Date, reason string, by *uuid.UUID) error {
	if _, err := l.GetItem(ctx, itemID); err != nil {
		return err
	}
	rows := make([]models.BlockedDate, 0, len(days))
	for _, d := range days {
		rows = append(rows, models.BlockedDate{
			ItemID:    itemID,
			Day:       calendar.ToTime(d),
			Reason:    reason,
			CreatedBy: by,
			CreatedAt: l.now().UTC(),
		})
	}
	return storageErr("block dates", l.repo.BlockedDates.Add(ctx, rows))
}

// UnblockDate возвращает false, если день не был заблокирован
func (l *Ledger) UnblockDate(ctx context.Context, itemID uuid.UUID, day civil.Date) (bool, error) {
	ok, err := l.repo.BlockedDates.Remove(ctx, itemID, day)
	return ok, storageErr("unblock date", err)
}

func (l *Ledger) ListBlockedDates(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]civil.Date, error) {
	days, err := l.repo.BlockedDates.ListInRange(ctx, itemID, rng)
	return days, storageErr("list blocked dates", err)
}

func (l *Ledger) ListItems(ctx context.Context, f repository.ItemFilter) ([]models.Item, int64, error) {
	list, total, err := l.repo.Items.List(ctx, f)
	return list, total, storageErr("list items", err)
}

func (l *Ledger) ItemsWithActiveFrom(ctx context.Context, from civil.Date) ([]uuid.UUID, error) {
	ids, err := l.repo.Reservations.ItemIDsWithActiveFrom(ctx, calendar.ToTime(from))
	return ids, storageErr("list items with active reservations", err)
}

func (l *Ledger) Ping(ctx context.Context) error {
	return storageErr("ping", l.repo.Ping(ctx))
}
