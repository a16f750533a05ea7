package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/idempotency"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/internal/service"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func span(a, b string) calendar.Range {
	return calendar.Range{Start: day(a), End: day(b)}
}

func memberCtx() context.Context {
	return service.WithCaller(context.Background(), uuid.New(), service.RoleMember)
}

func adminCtx() context.Context {
	return service.WithCaller(context.Background(), uuid.New(), service.RoleAdmin)
}

type fixture struct {
	svc  service.LendingService
	repo *repository.Repository
}

func newFixture(t *testing.T, mutate ...func(*service.Deps)) *fixture {
	t.Helper()
	repo := repository.NewMemory()
	deps := service.Deps{Repo: repo, Now: func() time.Time { return fixedNow }}
	for _, m := range mutate {
		m(&deps)
	}
	return &fixture{svc: service.NewLendingService(deps, service.DefaultOptions()), repo: repo}
}

func (f *fixture) item(t *testing.T, total int32) uuid.UUID {
	t.Helper()
	it := &models.Item{ID: uuid.New(), Name: "Tent", TotalQuantity: total, IsActive: true}
	require.NoError(t, f.repo.Items.Create(context.Background(), it))
	return it.ID
}

func (f *fixture) existing(t *testing.T, itemID uuid.UUID, qty int32, r calendar.Range, st models.ReservationStatus) uuid.UUID {
	t.Helper()
	res := &models.Reservation{
		ID: uuid.New(), ItemID: itemID, Quantity: qty,
		StartDate: calendar.ToTime(r.Start), EndDate: calendar.ToTime(r.End),
		Status: st, Priority: models.PriorityLow, SubmitterID: uuid.New(),
	}
	require.NoError(t, f.repo.Reservations.Create(context.Background(), res))
	return res.ID
}

func reserveInput(itemID uuid.UUID, qty int, r calendar.Range) service.ReserveInput {
	return service.ReserveInput{ItemID: itemID, Quantity: qty, Range: r, Priority: models.PriorityMedium}
}

// total=5, 5 шт. на 22-23 мая принимается, следующая 1 шт. даёт конфликт
// с подсказкой на ближайшее окно той же длины.
func TestReserve_FullCapacityThenConflict(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 5)
	r := span("2025-05-22", "2025-05-23")

	res, err := f.svc.Reserve(memberCtx(), reserveInput(itemID, 5, r))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, res.Status)
	assert.Equal(t, r, res.Range())

	_, err = f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, r))
	require.ErrorIs(t, err, service.ErrConflict)

	var ce *service.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []calendar.Range{span("2025-05-24", "2025-05-25")}, ce.Suggestions)
	assert.Equal(t, []civil.Date{day("2025-05-22"), day("2025-05-23")}, ce.Conflicts)

	left, err := f.svc.RemainingOverRange(context.Background(), itemID, r)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

// total=3, активная бронь 3 шт. на 1–5 июня; проверка 1 шт. на 3 июня -
// отказ с конфликтной датой 3 июня.
func TestCheck_FullyBookedDay(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 3)
	f.existing(t, itemID, 3, span("2025-06-01", "2025-06-05"), models.ReservationApproved)

	res, err := f.svc.Check(context.Background(), service.CheckInput{
		ItemID: itemID, Quantity: 1, Range: calendar.Single(day("2025-06-03")),
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, 0, res.AvailableQty)
	assert.Equal(t, []civil.Date{day("2025-06-03")}, res.Conflicts)
	assert.Equal(t, []calendar.Range{calendar.Single(day("2025-06-06"))}, res.Suggestions)
}

func TestCheck_Validation(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 2)

	cases := []struct {
		name string
		in   service.CheckInput
		want error
	}{
		{"zero quantity", service.CheckInput{ItemID: itemID, Quantity: 0, Range: span("2025-05-10", "2025-05-10")}, service.ErrInvalidRequest},
		{"reversed range", service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-05-10", "2025-05-09")}, service.ErrInvalidRequest},
		{"past date", service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-04-30", "2025-05-02")}, service.ErrPastDate},
		{"unknown item", service.CheckInput{ItemID: uuid.New(), Quantity: 1, Range: span("2025-05-10", "2025-05-10")}, service.ErrItemNotFound},
		{"exceeds total", service.CheckInput{ItemID: itemID, Quantity: 3, Range: span("2025-05-10", "2025-05-10")}, service.ErrInvalidRequest},
		{"range too long", service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-06-01", "9999-12-31")}, service.ErrInvalidRequest},
		{"one day over the limit", service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-05-10", "2026-05-10")}, service.ErrInvalidRequest},
		{"too many suggestions", service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-05-10", "2025-05-10"), MaxSuggestions: 50}, service.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Check(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// сегодня допустимо
	res, err := f.svc.Check(context.Background(), service.CheckInput{ItemID: itemID, Quantity: 2, Range: calendar.Single(day("2025-05-01"))})
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, 2, res.AvailableQty)
}

func TestCheck_SuggestionsNeverIncludeBlockedDates(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	f.existing(t, itemID, 1, span("2025-06-10", "2025-06-11"), models.ReservationPending)

	blocked := []civil.Date{day("2025-06-12"), day("2025-06-13"), day("2025-06-16")}
	require.NoError(t, f.svc.BlockDates(adminCtx(), itemID, blocked, "maintenance"))

	res, err := f.svc.Check(context.Background(), service.CheckInput{
		ItemID: itemID, Quantity: 1, Range: span("2025-06-10", "2025-06-11"), MaxSuggestions: 5,
	})
	require.NoError(t, err)
	require.False(t, res.Available)
	require.NotEmpty(t, res.Suggestions)

	listed, err := f.svc.BlockedDates(context.Background(), itemID, 90)
	require.NoError(t, err)
	assert.Equal(t, blocked, listed)

	for _, s := range res.Suggestions {
		for _, b := range listed {
			assert.False(t, s.Contains(b), "suggestion %s contains blocked %s", s, b)
		}
	}
	assert.Equal(t, span("2025-06-14", "2025-06-15"), res.Suggestions[0])
}

func TestCheck_BlockedDayInRequestIsConflict(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 4)
	require.NoError(t, f.svc.BlockDates(adminCtx(), itemID, []civil.Date{day("2025-07-02")}, ""))

	res, err := f.svc.Check(context.Background(), service.CheckInput{ItemID: itemID, Quantity: 1, Range: span("2025-07-01", "2025-07-03")})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, []civil.Date{day("2025-07-02")}, res.Conflicts)
	assert.Equal(t, []calendar.Range{span("2025-07-04", "2025-07-06")}, res.Suggestions)

	_, err = f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, span("2025-07-01", "2025-07-03")))
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestReserve_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	r := calendar.Single(day("2025-05-20"))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
		start     = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, r))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)

	active, err := f.repo.Reservations.ListActive(context.Background(), itemID, r)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCheckThenReserve(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 2)
	r := span("2025-05-15", "2025-05-16")

	check, err := f.svc.Check(context.Background(), service.CheckInput{ItemID: itemID, Quantity: 2, Range: r})
	require.NoError(t, err)
	require.True(t, check.Available)

	// без вмешательства: бронь проходит
	_, err = f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, r))
	require.NoError(t, err)

	check, err = f.svc.Check(context.Background(), service.CheckInput{ItemID: itemID, Quantity: 1, Range: r})
	require.NoError(t, err)
	require.True(t, check.Available)

	// между check и reserve кто-то забрал последнюю единицу
	f.existing(t, itemID, 1, calendar.Single(day("2025-05-16")), models.ReservationApproved)
	_, err = f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, r))
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestAvailabilityMap_MatchesRemaining(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 2)
	f.existing(t, itemID, 2, span("2025-05-10", "2025-05-11"), models.ReservationApproved)
	f.existing(t, itemID, 1, calendar.Single(day("2025-05-12")), models.ReservationInUse)
	f.existing(t, itemID, 2, calendar.Single(day("2025-05-14")), models.ReservationRejected)
	require.NoError(t, f.svc.BlockDates(adminCtx(), itemID, []civil.Date{day("2025-05-13")}, "inventory"))

	m, err := f.svc.BuildAvailabilityMap(context.Background(), itemID, 15)
	require.NoError(t, err)
	assert.Len(t, m.Calendar, 15)
	assert.Equal(t, day("2025-05-01"), m.From)

	assert.Equal(t, service.DayFullyReserved, m.Calendar["2025-05-10"].Status)
	assert.Equal(t, service.DayAvailable, m.Calendar["2025-05-12"].Status)
	assert.Equal(t, 1, *m.Calendar["2025-05-12"].AvailableQty)
	assert.Equal(t, service.DayBlocked, m.Calendar["2025-05-13"].Status)
	assert.Nil(t, m.Calendar["2025-05-13"].AvailableQty)
	assert.Equal(t, 2, *m.Calendar["2025-05-14"].AvailableQty)
	_, outside := m.Calendar["2025-05-16"]
	assert.False(t, outside)

	for key, entry := range m.Calendar {
		if entry.Status == service.DayBlocked {
			continue
		}
		rem, err := f.svc.RemainingOn(context.Background(), itemID, day(key))
		require.NoError(t, err)
		assert.Equal(t, rem, *entry.AvailableQty, key)
		assert.Equal(t, rem == 0, entry.Status == service.DayFullyReserved, key)
	}

	_, err = f.svc.BuildAvailabilityMap(context.Background(), itemID, 400)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestRemainingOn_ClampsInconsistentData(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	f.existing(t, itemID, 1, calendar.Single(day("2025-05-05")), models.ReservationApproved)
	f.existing(t, itemID, 1, calendar.Single(day("2025-05-05")), models.ReservationPending)

	rem, err := f.svc.RemainingOn(context.Background(), itemID, day("2025-05-05"))
	require.NoError(t, err)
	assert.Equal(t, 0, rem)

	flagged, err := f.svc.AuditCapacity(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
}

func TestRemainingOverRange_RejectsLongRange(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)

	_, err := f.svc.RemainingOverRange(context.Background(), itemID, span("2025-06-01", "9999-12-31"))
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	left, err := f.svc.RemainingOverRange(context.Background(), itemID, span("2025-06-01", "2026-05-31"))
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	owner := uuid.New()
	ownerCtx := service.WithCaller(context.Background(), owner, service.RoleMember)
	r := calendar.Single(day("2025-05-20"))

	res, err := f.svc.Reserve(ownerCtx, reserveInput(itemID, 1, r))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ownerCtx, res.ID, models.ReservationApproved)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.svc.UpdateStatus(memberCtx(), res.ID, models.ReservationCancelled)
	assert.ErrorIs(t, err, service.ErrReservationNotFound)

	updated, err := f.svc.UpdateStatus(adminCtx(), res.ID, models.ReservationApproved)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationApproved, updated.Status)

	_, err = f.svc.UpdateStatus(adminCtx(), res.ID, models.ReservationReturned)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ownerCtx, res.ID, models.ReservationCancelled)
	require.NoError(t, err)

	// отменённая бронь ёмкость не занимает
	check, err := f.svc.Check(context.Background(), service.CheckInput{ItemID: itemID, Quantity: 1, Range: r})
	require.NoError(t, err)
	assert.True(t, check.Available)

	_, err = f.svc.UpdateStatus(adminCtx(), res.ID, models.ReservationApproved)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestReserve_RequiresCaller(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	_, err := f.svc.Reserve(context.Background(), reserveInput(itemID, 1, calendar.Single(day("2025-05-20"))))
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

type eventBusMock struct {
	mu      sync.Mutex
	created []service.ReservationCreatedEvent
	changed []service.ReservationStatusChangedEvent
	err     error
}

func (m *eventBusMock) PublishReservationCreated(ctx context.Context, e service.ReservationCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, e)
	return m.err
}

func (m *eventBusMock) PublishReservationStatusChanged(ctx context.Context, e service.ReservationStatusChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, e)
	return m.err
}

func TestReserve_PublishesEventsBestEffort(t *testing.T) {
	bus := &eventBusMock{err: errors.New("broker down")}
	f := newFixture(t, func(d *service.Deps) { d.Events = bus })
	itemID := f.item(t, 1)

	res, err := f.svc.Reserve(memberCtx(), reserveInput(itemID, 1, calendar.Single(day("2025-05-20"))))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(adminCtx(), res.ID, models.ReservationRejected)
	require.NoError(t, err)

	require.Len(t, bus.created, 1)
	assert.Equal(t, res.ID, bus.created[0].ReservationID)
	assert.Equal(t, "2025-05-20", bus.created[0].StartDate)
	require.Len(t, bus.changed, 1)
	assert.Equal(t, "pending", bus.changed[0].From)
	assert.Equal(t, "rejected", bus.changed[0].To)
}

type documentStoreMock struct {
	PutFunc    func(ctx context.Context, path, contentType string, r io.Reader, meta map[string]string) (int64, error)
	DeleteFunc func(ctx context.Context, path string) error
}

func (m *documentStoreMock) Put(ctx context.Context, path, contentType string, r io.Reader, meta map[string]string) (int64, error) {
	return m.PutFunc(ctx, path, contentType, r, meta)
}

func (m *documentStoreMock) Delete(ctx context.Context, path string) error {
	return m.DeleteFunc(ctx, path)
}

func TestReserve_UploadsDocuments(t *testing.T) {
	var (
		mu      sync.Mutex
		stored  = map[string]int64{}
		deleted []string
	)
	store := &documentStoreMock{
		PutFunc: func(ctx context.Context, path, contentType string, r io.Reader, meta map[string]string) (int64, error) {
			n, err := io.Copy(io.Discard, r)
			mu.Lock()
			stored[path] = n
			mu.Unlock()
			return n, err
		},
		DeleteFunc: func(ctx context.Context, path string) error {
			mu.Lock()
			deleted = append(deleted, path)
			mu.Unlock()
			return nil
		},
	}
	f := newFixture(t, func(d *service.Deps) { d.Documents = store })
	itemID := f.item(t, 1)

	in := reserveInput(itemID, 1, calendar.Single(day("2025-05-20")))
	in.Documents = []service.DocumentUpload{
		{Kind: models.DocumentLetter, Filename: "letter.jpg", ContentType: "image/jpeg", Body: bytes.NewReader([]byte("letter-bytes"))},
		{Kind: models.DocumentValidID, Filename: "id.png", ContentType: "image/png", Body: bytes.NewReader([]byte("id"))},
	}
	res, err := f.svc.Reserve(memberCtx(), in)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)

	letterPath := "reservations/" + res.ID.String() + "/letter.jpg"
	assert.Equal(t, letterPath, res.Documents[0].ObjectPath)
	assert.Equal(t, int64(12), stored[letterPath])

	got, err := f.repo.Reservations.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2)

	// конфликт до загрузки: в хранилище ничего не пишется
	in.Documents[0].Body = bytes.NewReader([]byte("again"))
	in.Documents[1].Body = bytes.NewReader([]byte("again"))
	_, err = f.svc.Reserve(memberCtx(), in)
	require.ErrorIs(t, err, service.ErrConflict)
	assert.Len(t, stored, 2)
	assert.Empty(t, deleted)
}

func TestReserve_DocumentsWithoutStore(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	in := reserveInput(itemID, 1, calendar.Single(day("2025-05-20")))
	in.Documents = []service.DocumentUpload{{Kind: models.DocumentLetter, Filename: "a.jpg", Body: bytes.NewReader(nil)}}

	_, err := f.svc.Reserve(memberCtx(), in)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestReserve_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t, func(d *service.Deps) { d.Idempotency = idempotency.NewMemory(time.Hour, time.Minute) })
	itemID := f.item(t, 3)
	ctx := service.WithCaller(context.Background(), uuid.New(), service.RoleMember)

	in := reserveInput(itemID, 1, calendar.Single(day("2025-05-20")))
	in.IdempotencyKey = "retry-1"

	first, err := f.svc.Reserve(ctx, in)
	require.NoError(t, err)
	second, err := f.svc.Reserve(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	rem, err := f.svc.RemainingOn(context.Background(), itemID, day("2025-05-20"))
	require.NoError(t, err)
	assert.Equal(t, 2, rem)
}

type failingItems struct{ repository.ItemRepo }

func (failingItems) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return nil, errors.New("connection refused")
}

func TestCheck_StorageFailureIsNotAResult(t *testing.T) {
	f := newFixture(t)
	f.repo.Items = failingItems{f.repo.Items}

	_, err := f.svc.Check(context.Background(), service.CheckInput{ItemID: uuid.New(), Quantity: 1, Range: calendar.Single(day("2025-05-20"))})
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestCheck_HonorsCancellation(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Check(ctx, service.CheckInput{ItemID: itemID, Quantity: 1, Range: calendar.Single(day("2025-05-20"))})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestUpdateItem_CannotDropBelowReserved(t *testing.T) {
	f := newFixture(t)
	itemID := f.item(t, 5)
	f.existing(t, itemID, 2, span("2025-05-10", "2025-05-12"), models.ReservationApproved)
	f.existing(t, itemID, 2, span("2025-05-11", "2025-05-11"), models.ReservationPending)

	four := int32(4)
	it, err := f.svc.UpdateItem(adminCtx(), itemID, service.ItemPatch{TotalQuantity: &four})
	require.NoError(t, err)
	assert.Equal(t, int32(4), it.TotalQuantity)

	three := int32(3)
	_, err = f.svc.UpdateItem(adminCtx(), itemID, service.ItemPatch{TotalQuantity: &three})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.svc.UpdateItem(memberCtx(), itemID, service.ItemPatch{TotalQuantity: &four})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestListItemsAndReservations(t *testing.T) {
	f := newFixture(t)
	admin := adminCtx()
	tent, err := f.svc.CreateItem(admin, service.ItemInput{Name: " Tent ", TotalQuantity: 2, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "Tent", tent.Name)
	_, err = f.svc.CreateItem(admin, service.ItemInput{Name: "Old chair", TotalQuantity: 1, IsActive: false})
	require.NoError(t, err)

	items, total, err := f.svc.ListItems(context.Background(), service.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, tent.ID, items[0].ID)

	owner := service.WithCaller(context.Background(), uuid.New(), service.RoleMember)
	res, err := f.svc.Reserve(owner, reserveInput(tent.ID, 1, calendar.Single(day("2025-05-20"))))
	require.NoError(t, err)

	mine, err := f.svc.ListMyReservations(owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, res.ID, mine[0].ID)

	got, err := f.svc.GetReservation(owner, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = f.svc.GetReservation(memberCtx(), res.ID)
	assert.ErrorIs(t, err, service.ErrReservationNotFound)

	active, err := f.svc.ListActiveReservations(admin, tent.ID, span("2025-05-01", "2025-05-31"))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
