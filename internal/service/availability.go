package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/metrics"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Calculator считает остаток по дням и карту доступности. Только читает Ledger.
type Calculator struct {
	ledger *Ledger
	cache  AvailabilityCache
	log    *zap.Logger
	opts   Options
	now    func() time.Time
}

func NewCalculator(ledger *Ledger, cache AvailabilityCache, log *zap.Logger, opts Options) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{ledger: ledger, cache: cache, log: log, opts: opts, now: time.Now}
}

func (c *Calculator) today() civil.Date {
	return calendar.Today(c.now(), c.opts.Location)
}

// flagAnomalies: отрицательный остаток значит рассогласованные данные:
// наружу отдаём 0, здесь только лог и метрика.
func (c *Calculator) flagAnomalies(itemID uuid.UUID, days []civil.Date) {
	if len(days) == 0 {
		return
	}
	metrics.CapacityAnomalies.Add(float64(len(days)))
	c.log.Warn("capacity anomaly: active reservations exceed total quantity",
		zap.String("item_id", itemID.String()),
		zap.Stringer("first_day", days[0]),
		zap.Int("days", len(days)),
	)
}

func (c *Calculator) RemainingOn(ctx context.Context, itemID uuid.UUID, day civil.Date) (int, error) {
	if !day.IsValid() {
		return 0, fmt.Errorf("%w: invalid date", ErrInvalidRequest)
	}
	return c.RemainingOverRange(ctx, itemID, calendar.Single(day))
}

func (c *Calculator) RemainingOverRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) (int, error) {
	if err := checkRange(rng, c.opts.MaxRangeDays); err != nil {
		return 0, err
	}
	item, err := c.ledger.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	snap, err := c.ledger.snapshot(ctx, item, rng)
	if err != nil {
		return 0, err
	}
	v, anomalies := snap.remainingOver(rng)
	c.flagAnomalies(itemID, anomalies)
	return v, nil
}

// horizon 0 означает значение по умолчанию; больше MaxMapDays считается ошибкой запроса
func (c *Calculator) horizon(days int) (int, error) {
	if days == 0 {
		return c.opts.DefaultMapDays, nil
	}
	if days < 0 || days > c.opts.MaxMapDays {
		return 0, fmt.Errorf("%w: days_ahead must be between 1 and %d", ErrInvalidRequest, c.opts.MaxMapDays)
	}
	return days, nil
}

// BuildAvailabilityMap покрывает [today, today+days). Результат кэшируется,
// но Check/Reserve кэш не читают.
func (c *Calculator) BuildAvailabilityMap(ctx context.Context, itemID uuid.UUID, days int) (*AvailabilityMap, error) {
	days, err := c.horizon(days)
	if err != nil {
		return nil, err
	}
	today := c.today()

	// поколение читается до снимка: если между ними прошла инвалидация,
	// карта уйдёт в поле старого поколения и никем не будет прочитана
	field, cacheable := c.cacheField(ctx, itemID, today, days)
	if cacheable {
		if m := c.cached(ctx, itemID, field); m != nil {
			return m, nil
		}
	}

	item, err := c.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	window := calendar.Window(today, days)
	snap, err := c.ledger.snapshot(ctx, item, window)
	if err != nil {
		return nil, err
	}

	m := &AvailabilityMap{
		ItemID:   itemID,
		From:     today,
		Days:     days,
		Calendar: make(map[string]DayAvailability, days),
	}
	var anomalies []civil.Date
	for d := window.Start; !d.After(window.End); d = d.AddDays(1) {
		if snap.isBlocked(d) {
			m.Calendar[d.String()] = DayAvailability{Status: DayBlocked}
			continue
		}
		rem, bad := snap.remainingOn(d)
		if bad {
			anomalies = append(anomalies, d)
		}
		st := DayAvailable
		if rem == 0 {
			st = DayFullyReserved
		}
		qty := rem
		m.Calendar[d.String()] = DayAvailability{Status: st, AvailableQty: &qty}
	}
	c.flagAnomalies(itemID, anomalies)

	if cacheable {
		c.store(ctx, itemID, field, m)
	}
	return m, nil
}

func (c *Calculator) cacheField(ctx context.Context, itemID uuid.UUID, today civil.Date, days int) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	gen, err := c.cache.Generation(ctx, itemID)
	if err != nil {
		c.log.Warn("availability cache generation failed", zap.String("item_id", itemID.String()), zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("%d:%s:%d", gen, today, days), true
}

func (c *Calculator) cached(ctx context.Context, itemID uuid.UUID, field string) *AvailabilityMap {
	raw, ok, err := c.cache.Get(ctx, itemID, field)
	if err != nil {
		c.log.Warn("availability cache get failed", zap.String("item_id", itemID.String()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var m AvailabilityMap
	if err := json.Unmarshal(raw, &m); err != nil {
		c.log.Warn("availability cache entry is corrupt", zap.String("item_id", itemID.String()), zap.Error(err))
		return nil
	}
	return &m
}

func (c *Calculator) store(ctx context.Context, itemID uuid.UUID, field string, m *AvailabilityMap) {
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, itemID, field, raw); err != nil {
		c.log.Warn("availability cache set failed", zap.String("item_id", itemID.String()), zap.Error(err))
	}
}

func (c *Calculator) invalidate(ctx context.Context, itemID uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, itemID); err != nil {
		c.log.Warn("availability cache invalidate failed", zap.String("item_id", itemID.String()), zap.Error(err))
	}
}

// BlockedDates: заблокированные дни в том же окне, что и карта.
func (c *Calculator) BlockedDates(ctx context.Context, itemID uuid.UUID, days int) ([]civil.Date, error) {
	days, err := c.horizon(days)
	if err != nil {
		return nil, err
	}
	if _, err := c.ledger.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	out, err := c.ledger.ListBlockedDates(ctx, itemID, calendar.Window(c.today(), days))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []civil.Date{}
	}
	return out, nil
}

// OverbookedDays: дни, где сумма активных броней больше total_quantity.
func (c *Calculator) OverbookedDays(ctx context.Context, itemID uuid.UUID, days int) ([]OverbookedDay, error) {
	if days <= 0 {
		days = c.opts.DefaultMapDays
	}
	item, err := c.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	window := calendar.Window(c.today(), days)
	snap, err := c.ledger.snapshot(ctx, item, window)
	if err != nil {
		return nil, err
	}
	var out []OverbookedDay
	for d := window.Start; !d.After(window.End); d = d.AddDays(1) {
		if snap.raw(d) < 0 {
			out = append(out, OverbookedDay{
				Date:  d,
				Used:  snap.used[d.DaysSince(window.Start)],
				Total: item.TotalQuantity,
			})
		}
	}
	return out, nil
}
