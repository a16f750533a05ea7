package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// memState: полный снимок данных in-memory реестра.
type memState struct {
	items        map[uuid.UUID]models.Item
	reservations map[uuid.UUID]models.Reservation
	blocked      map[uuid.UUID]map[civil.Date]models.BlockedDate
	documents    map[uuid.UUID][]models.ReservationDocument
}

func newMemState() *memState {
	return &memState{
		items:        map[uuid.UUID]models.Item{},
		reservations: map[uuid.UUID]models.Reservation{},
		blocked:      map[uuid.UUID]map[civil.Date]models.BlockedDate{},
		documents:    map[uuid.UUID][]models.ReservationDocument{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, days := range s.blocked {
		m := make(map[civil.Date]models.BlockedDate, len(days))
		for d, b := range days {
			m[d] = b
		}
		c.blocked[k] = m
	}
	for k, v := range s.documents {
		c.documents[k] = append([]models.ReservationDocument(nil), v...)
	}
	return c
}

// memDB: txMu сериализует все записи (транзакции и одиночные),
// mu защищает указатель на текущее состояние для читателей.
type memDB struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
}

// memScope: точка доступа репозиториев к данным. Это либо общий memDB, либо
// приватная копия внутри транзакции.
type memScope struct {
	db *memDB
	tx *memState
}

func (m memScope) read(ctx context.Context, fn func(st *memState)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.tx != nil {
		fn(m.tx)
		return nil
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	fn(m.db.state)
	return nil
}

func (m memScope) write(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.tx != nil {
		return fn(m.tx)
	}
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return fn(m.db.state)
}

// NewMemory: реестр в памяти (STORAGE_DRIVER=memory и тесты).
// Транзакция работает на копии состояния и подменяет его при успехе.
func NewMemory() *Repository {
	db := &memDB{state: newMemState()}
	r := buildMemory(memScope{db: db})
	r.tx = func(ctx context.Context, fn func(tx *Repository) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		db.txMu.Lock()
		defer db.txMu.Unlock()

		db.mu.RLock()
		work := db.state.clone()
		db.mu.RUnlock()

		if err := fn(buildMemory(memScope{db: db, tx: work})); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		db.mu.Lock()
		db.state = work
		db.mu.Unlock()
		return nil
	}
	return r
}

func buildMemory(s memScope) *Repository {
	return &Repository{
		Items:        &memItemRepo{s},
		Reservations: &memReservationRepo{s},
		BlockedDates: &memBlockedDateRepo{s},
		Documents:    &memDocumentRepo{s},
	}
}

type memItemRepo struct{ s memScope }

func (r *memItemRepo) Create(ctx context.Context, it *models.Item) error {
	return r.s.write(ctx, func(st *memState) error {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		stampTimes(&it.CreatedAt, &it.UpdatedAt)
		st.items[it.ID] = *it
		return nil
	})
}

func (r *memItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var (
		out   models.Item
		found bool
	)
	if err := r.s.read(ctx, func(st *memState) { out, found = st.items[id] }); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func (r *memItemRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *memItemRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func(st *memState) error {
		it, found := st.items[id]
		if !found {
			return nil
		}
		for k, v := range fields {
			switch k {
			case "name":
				it.Name = v.(string)
			case "description":
				it.Description = v.(string)
			case "location":
				it.Location = v.(string)
			case "image_url":
				it.ImageURL = v.(string)
			case "total_quantity":
				it.TotalQuantity = v.(int32)
			case "is_active":
				it.IsActive = v.(bool)
			case "updated_at":
				it.UpdatedAt = v.(time.Time)
			}
		}
		st.items[id] = it
		ok = true
		return nil
	})
	return ok, err
}

func (r *memItemRepo) List(ctx context.Context, f ItemFilter) ([]models.Item, int64, error) {
	var list []models.Item
	search := strings.ToLower(strings.TrimSpace(f.Search))
	err := r.s.read(ctx, func(st *memState) {
		for _, it := range st.items {
			if search != "" && !strings.Contains(strings.ToLower(it.Name), search) {
				continue
			}
			if f.OnlyActive && !it.IsActive {
				continue
			}
			list = append(list, it)
		}
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	total := int64(len(list))
	return pageOf(list, f.Limit, f.Offset), total, nil
}

type memReservationRepo struct{ s memScope }

func (r *memReservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.s.write(ctx, func(st *memState) error {
		if res.ID == uuid.Nil {
			res.ID = uuid.New()
		}
		stampTimes(&res.CreatedAt, &res.UpdatedAt)
		cp := *res
		cp.Documents = nil
		st.reservations[res.ID] = cp
		return nil
	})
}

func (r *memReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var (
		out   models.Reservation
		found bool
	)
	err := r.s.read(ctx, func(st *memState) {
		out, found = st.reservations[id]
		if found {
			out.Documents = append([]models.ReservationDocument(nil), st.documents[id]...)
		}
	})
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (r *memReservationRepo) ListActive(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error) {
	return r.filter(ctx, func(res *models.Reservation) bool {
		return res.ItemID == itemID && res.IsActive() && res.Range().Overlaps(rng)
	}, byStartThenCreated)
}

func (r *memReservationRepo) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	list, err := r.filter(ctx, func(res *models.Reservation) bool {
		return res.SubmitterID == submitterID
	}, func(a, b *models.Reservation) bool { return a.CreatedAt.After(b.CreatedAt) })
	return pageOf(list, limit, offset), err
}

func (r *memReservationRepo) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	list, err := r.filter(ctx, func(res *models.Reservation) bool {
		return res.ItemID == itemID
	}, byStartThenCreated)
	return pageOf(list, limit, offset), err
}

func (r *memReservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func(st *memState) error {
		res, found := st.reservations[id]
		if !found || res.Status != from {
			return nil
		}
		res.Status = to
		res.UpdatedAt = time.Now().UTC()
		st.reservations[id] = res
		ok = true
		return nil
	})
	return ok, err
}

func (r *memReservationRepo) ItemIDsWithActiveFrom(ctx context.Context, from time.Time) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	err := r.s.read(ctx, func(st *memState) {
		for _, res := range st.reservations {
			if !res.IsActive() || res.EndDate.Before(from) {
				continue
			}
			if _, dup := seen[res.ItemID]; !dup {
				seen[res.ItemID] = struct{}{}
				ids = append(ids, res.ItemID)
			}
		}
	})
	return ids, err
}

func (r *memReservationRepo) filter(ctx context.Context, keep func(*models.Reservation) bool, less func(a, b *models.Reservation) bool) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.s.read(ctx, func(st *memState) {
		for _, res := range st.reservations {
			if keep(&res) {
				list = append(list, res)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return less(&list[i], &list[j]) })
	return list, nil
}

func byStartThenCreated(a, b *models.Reservation) bool {
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

type memBlockedDateRepo struct{ s memScope }

func (r *memBlockedDateRepo) Add(ctx context.Context, days []models.BlockedDate) error {
	return r.s.write(ctx, func(st *memState) error {
		for _, b := range days {
			m := st.blocked[b.ItemID]
			if m == nil {
				m = map[civil.Date]models.BlockedDate{}
				st.blocked[b.ItemID] = m
			}
			day := calendar.FromTime(b.Day)
			if prev, ok := m[day]; ok {
				prev.Reason = b.Reason
				m[day] = prev
				continue
			}
			if b.CreatedAt.IsZero() {
				b.CreatedAt = time.Now().UTC()
			}
			m[day] = b
		}
		return nil
	})
}

func (r *memBlockedDateRepo) Remove(ctx context.Context, itemID uuid.UUID, day civil.Date) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func(st *memState) error {
		if _, found := st.blocked[itemID][day]; found {
			delete(st.blocked[itemID], day)
			ok = true
		}
		return nil
	})
	return ok, err
}

func (r *memBlockedDateRepo) ListInRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]civil.Date, error) {
	var out []civil.Date
	err := r.s.read(ctx, func(st *memState) {
		for d := range st.blocked[itemID] {
			if rng.Contains(d) {
				out = append(out, d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, err
}

type memDocumentRepo struct{ s memScope }

func (r *memDocumentRepo) CreateBatch(ctx context.Context, docs []models.ReservationDocument) error {
	return r.s.write(ctx, func(st *memState) error {
		for i := range docs {
			if docs[i].ID == uuid.Nil {
				docs[i].ID = uuid.New()
			}
			if docs[i].CreatedAt.IsZero() {
				docs[i].CreatedAt = time.Now().UTC()
			}
			st.documents[docs[i].ReservationID] = append(st.documents[docs[i].ReservationID], docs[i])
		}
		return nil
	})
}

func (r *memDocumentRepo) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationDocument, error) {
	var out []models.ReservationDocument
	err := r.s.read(ctx, func(st *memState) {
		out = append(out, st.documents[reservationID]...)
	})
	return out, err
}

func stampTimes(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

func pageOf[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return nil
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
