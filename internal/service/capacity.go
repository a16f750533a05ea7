package service

import (
	"context"

	"lending-service/internal/calendar"
	"lending-service/internal/models"
	"lending-service/internal/repository"

	"cloud.google.com/go/civil"
)

// capacitySnapshot: занятость товара по дням в окне на момент чтения.
// used[i]: сумма количеств активных броней на день window.Start+i.
type capacitySnapshot struct {
	item    models.Item
	window  calendar.Range
	used    []int64
	blocked map[civil.Date]struct{}
}

func loadSnapshot(ctx context.Context, repo *repository.Repository, item *models.Item, window calendar.Range) (*capacitySnapshot, error) {
	active, err := repo.Reservations.ListActive(ctx, item.ID, window)
	if err != nil {
		return nil, storageErr("list active reservations", err)
	}
	blocked, err := repo.BlockedDates.ListInRange(ctx, item.ID, window)
	if err != nil {
		return nil, storageErr("list blocked dates", err)
	}
	return buildSnapshot(*item, window, active, blocked), nil
}

func buildSnapshot(item models.Item, window calendar.Range, active []models.Reservation, blocked []civil.Date) *capacitySnapshot {
	n := window.Days()
	diff := make([]int64, n+1)
	for i := range active {
		r := active[i].Range()
		if !r.Overlaps(window) {
			continue
		}
		from, to := r.Start, r.End
		if from.Before(window.Start) {
			from = window.Start
		}
		if to.After(window.End) {
			to = window.End
		}
		q := int64(active[i].Quantity)
		diff[from.DaysSince(window.Start)] += q
		diff[to.DaysSince(window.Start)+1] -= q
	}

	used := make([]int64, n)
	var run int64
	for i := 0; i < n; i++ {
		run += diff[i]
		used[i] = run
	}

	s := &capacitySnapshot{
		item:    item,
		window:  window,
		used:    used,
		blocked: make(map[civil.Date]struct{}, len(blocked)),
	}
	for _, d := range blocked {
		s.blocked[d] = struct{}{}
	}
	return s
}

// raw может быть отрицательным, если данные рассогласованы
func (s *capacitySnapshot) raw(d civil.Date) int64 {
	if !s.window.Contains(d) {
		return int64(s.item.TotalQuantity)
	}
	return int64(s.item.TotalQuantity) - s.used[d.DaysSince(s.window.Start)]
}

// remainingOn: остаток на день, не меньше нуля; anomaly=true, если пришлось обрезать.
func (s *capacitySnapshot) remainingOn(d civil.Date) (int, bool) {
	v := s.raw(d)
	if v < 0 {
		return 0, true
	}
	return int(v), false
}

func (s *capacitySnapshot) isBlocked(d civil.Date) bool {
	_, ok := s.blocked[d]
	return ok
}

// remainingOver: минимум по дням диапазона (блокировки не учитываются).
func (s *capacitySnapshot) remainingOver(r calendar.Range) (int, []civil.Date) {
	lowest := -1
	var anomalies []civil.Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		v, bad := s.remainingOn(d)
		if bad {
			anomalies = append(anomalies, d)
		}
		if lowest < 0 || v < lowest {
			lowest = v
		}
	}
	if lowest < 0 {
		lowest = 0
	}
	return lowest, anomalies
}

// conflicts: дни диапазона, где не хватает qty или день заблокирован.
func (s *capacitySnapshot) conflicts(r calendar.Range, qty int) []civil.Date {
	var out []civil.Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if s.isBlocked(d) {
			out = append(out, d)
			continue
		}
		if v, _ := s.remainingOn(d); v < qty {
			out = append(out, d)
		}
	}
	return out
}

func (s *capacitySnapshot) fits(r calendar.Range, qty int) bool {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if s.isBlocked(d) {
			return false
		}
		if v, _ := s.remainingOn(d); v < qty {
			return false
		}
	}
	return true
}

// suggest: окна той же длины, начинающиеся в req.End+1 … req.End+horizon,
// по возрастанию даты, не пересекающиеся друг с другом. Окно с заблокированным
// днём пропускается целиком.
func (s *capacitySnapshot) suggest(req calendar.Range, qty, horizon, limit int) []calendar.Range {
	if limit <= 0 || horizon <= 0 {
		return []calendar.Range{}
	}
	span := req.Days()
	out := make([]calendar.Range, 0, limit)
	for k := 1; k <= horizon && len(out) < limit; k++ {
		cand := calendar.Range{Start: req.End.AddDays(k), End: req.End.AddDays(k + span - 1)}
		if !s.fits(cand, qty) {
			continue
		}
		out = append(out, cand)
		// следующее окно начинается после найденного
		k += span - 1
	}
	return out
}

// searchWindow: окно, которое покрывает запрос и все кандидаты поиска.
func searchWindow(req calendar.Range, horizon int) calendar.Range {
	if horizon < 0 {
		horizon = 0
	}
	return calendar.Range{Start: req.Start, End: req.End.AddDays(horizon + req.Days() - 1)}
}
