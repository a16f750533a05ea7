package service

import (
	"testing"

	"lending-service/internal/calendar"
	"lending-service/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func mustDate(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rng(a, b string) calendar.Range {
	return calendar.Range{Start: mustDate(a), End: mustDate(b)}
}

func activeRes(qty int32, a, b string) models.Reservation {
	return models.Reservation{
		ID:        uuid.New(),
		Quantity:  qty,
		StartDate: calendar.ToTime(mustDate(a)),
		EndDate:   calendar.ToTime(mustDate(b)),
		Status:    models.ReservationApproved,
	}
}

func TestBuildSnapshot_UsagePerDay(t *testing.T) {
	item := models.Item{ID: uuid.New(), TotalQuantity: 5}
	window := rng("2025-06-01", "2025-06-07")
	snap := buildSnapshot(item, window, []models.Reservation{
		activeRes(2, "2025-05-28", "2025-06-02"), // начинается до окна
		activeRes(1, "2025-06-02", "2025-06-04"),
		activeRes(3, "2025-06-06", "2025-06-20"), // заканчивается после окна
	}, nil)

	assert.Equal(t, []int64{2, 3, 1, 1, 0, 3, 3}, snap.used)

	v, bad := snap.remainingOn(mustDate("2025-06-02"))
	assert.Equal(t, 2, v)
	assert.False(t, bad)

	low, anomalies := snap.remainingOver(rng("2025-06-03", "2025-06-06"))
	assert.Equal(t, 2, low)
	assert.Empty(t, anomalies)
}

func TestSnapshot_ClampsNegative(t *testing.T) {
	item := models.Item{ID: uuid.New(), TotalQuantity: 2}
	snap := buildSnapshot(item, rng("2025-06-01", "2025-06-03"), []models.Reservation{
		activeRes(2, "2025-06-01", "2025-06-02"),
		activeRes(1, "2025-06-02", "2025-06-03"),
	}, nil)

	v, bad := snap.remainingOn(mustDate("2025-06-02"))
	assert.Equal(t, 0, v)
	assert.True(t, bad)

	low, anomalies := snap.remainingOver(rng("2025-06-01", "2025-06-03"))
	assert.Equal(t, 0, low)
	assert.Equal(t, []civil.Date{mustDate("2025-06-02")}, anomalies)
}

func TestSnapshot_ConflictsIncludeBlocked(t *testing.T) {
	item := models.Item{ID: uuid.New(), TotalQuantity: 3}
	snap := buildSnapshot(item, rng("2025-06-01", "2025-06-10"),
		[]models.Reservation{activeRes(3, "2025-06-01", "2025-06-05")},
		[]civil.Date{mustDate("2025-06-07")},
	)

	assert.Equal(t, []civil.Date{mustDate("2025-06-03")}, snap.conflicts(rng("2025-06-03", "2025-06-03"), 1))
	assert.Equal(t,
		[]civil.Date{mustDate("2025-06-05"), mustDate("2025-06-07")},
		snap.conflicts(rng("2025-06-05", "2025-06-07"), 1),
	)
	assert.True(t, snap.fits(rng("2025-06-06", "2025-06-06"), 3))
	assert.False(t, snap.fits(rng("2025-06-06", "2025-06-07"), 1))
}

func TestSuggest(t *testing.T) {
	item := models.Item{ID: uuid.New(), TotalQuantity: 1}
	req := rng("2025-06-10", "2025-06-11")
	horizon := 30
	snap := buildSnapshot(item, searchWindow(req, horizon),
		[]models.Reservation{
			activeRes(1, "2025-06-10", "2025-06-11"),
			activeRes(1, "2025-06-17", "2025-06-17"),
		},
		[]civil.Date{mustDate("2025-06-12"), mustDate("2025-06-13")},
	)

	t.Run("skips blocked windows and keeps suggestions disjoint", func(t *testing.T) {
		got := snap.suggest(req, 1, horizon, 3)
		assert.Equal(t, []calendar.Range{
			rng("2025-06-14", "2025-06-15"),
			rng("2025-06-18", "2025-06-19"),
			rng("2025-06-20", "2025-06-21"),
		}, got)
		for _, r := range got {
			assert.Equal(t, req.Days(), r.Days())
			assert.False(t, r.Contains(mustDate("2025-06-12")))
			assert.False(t, r.Contains(mustDate("2025-06-13")))
		}
	})

	t.Run("horizon bounds the search", func(t *testing.T) {
		assert.Empty(t, snap.suggest(req, 1, 2, 1))
		assert.Equal(t, []calendar.Range{rng("2025-06-14", "2025-06-15")}, snap.suggest(req, 1, 3, 1))
	})

	t.Run("zero limit", func(t *testing.T) {
		assert.Empty(t, snap.suggest(req, 1, horizon, 0))
	})
}

func TestSearchWindow(t *testing.T) {
	w := searchWindow(rng("2025-06-10", "2025-06-11"), 30)
	assert.Equal(t, mustDate("2025-06-10"), w.Start)
	// последний кандидат: старт end+30, длина 2 дня
	assert.Equal(t, mustDate("2025-07-12"), w.End)
}

func TestStatusGraph(t *testing.T) {
	allowed := map[models.ReservationStatus][]models.ReservationStatus{
		models.ReservationPending:  {models.ReservationApproved, models.ReservationRejected, models.ReservationCancelled},
		models.ReservationApproved: {models.ReservationInUse, models.ReservationCancelled},
		models.ReservationInUse:    {models.ReservationReturned},
	}
	all := []models.ReservationStatus{
		models.ReservationPending, models.ReservationApproved, models.ReservationInUse,
		models.ReservationRejected, models.ReservationCancelled, models.ReservationReturned,
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	for _, s := range all {
		assert.Equal(t, s == models.ReservationPending || s == models.ReservationApproved || s == models.ReservationInUse, s.IsActive(), s)
	}
}
