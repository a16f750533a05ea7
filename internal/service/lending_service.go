package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/metrics"
	"lending-service/internal/models"
	"lending-service/internal/repository"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Deps struct {
	Repo        *repository.Repository
	Log         *zap.Logger
	Events      EventBus
	Cache       AvailabilityCache
	Documents   DocumentStore
	Idempotency IdempotencyStore
	Now         func() time.Time
}

type lendingService struct {
	ledger   *Ledger
	calc     *Calculator
	resolver *Resolver

	events      EventBus
	documents   DocumentStore
	idempotency IdempotencyStore
	log         *zap.Logger
	opts        Options
	now         func() time.Time
}

func NewLendingService(d Deps, opts Options) LendingService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	ledger := NewLedger(d.Repo)
	ledger.now = d.Now
	calc := NewCalculator(ledger, d.Cache, d.Log, opts)
	calc.now = d.Now
	resolver := NewResolver(ledger, calc, d.Log, opts)
	resolver.now = d.Now

	return &lendingService{
		ledger:      ledger,
		calc:        calc,
		resolver:    resolver,
		events:      d.Events,
		documents:   d.Documents,
		idempotency: d.Idempotency,
		log:         d.Log,
		opts:        opts,
		now:         d.Now,
	}
}

func (s *lendingService) requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid == uuid.Nil {
		return uuid.Nil, "", ErrUnauthorized
	}

	role, ok := RoleFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}

	return uid, role, nil
}

func (s *lendingService) requireAdmin(ctx context.Context) (uuid.UUID, error) {
	uid, role, err := s.requireAuth(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if role != RoleAdmin {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}

func (s *lendingService) today() civil.Date {
	return calendar.Today(s.now(), s.opts.Location)
}

func (s *lendingService) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return s.ledger.GetItem(ctx, itemID)
}

func (s *lendingService) ListItems(ctx context.Context, q ItemQuery) ([]models.Item, int64, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative pagination", ErrInvalidRequest)
	}
	if q.Limit == 0 || q.Limit > 200 {
		q.Limit = 200
	}
	return s.ledger.ListItems(ctx, repository.ItemFilter{
		Search:     q.Search,
		OnlyActive: !q.IncludeInactive,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
}

func (s *lendingService) CreateItem(ctx context.Context, in ItemInput) (*models.Item, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if in.TotalQuantity < 0 {
		return nil, fmt.Errorf("%w: total_quantity must be >= 0", ErrInvalidRequest)
	}

	now := s.now().UTC()
	it := &models.Item{
		ID:            uuid.New(),
		Name:          name,
		Description:   strings.TrimSpace(in.Description),
		TotalQuantity: in.TotalQuantity,
		OwnerID:       in.OwnerID,
		Location:      strings.TrimSpace(in.Location),
		ImageURL:      strings.TrimSpace(in.ImageURL),
		IsActive:      in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.ledger.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	s.log.Info("item created", zap.String("item_id", it.ID.String()), zap.Int32("total_quantity", it.TotalQuantity))
	return it, nil
}

func (s *lendingService) UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (*models.Item, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
		}
		fields["name"] = name
	}

	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}

	if patch.Location != nil {
		fields["location"] = strings.TrimSpace(*patch.Location)
	}

	if patch.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*patch.ImageURL)
	}

	if patch.TotalQuantity != nil {
		if *patch.TotalQuantity < 0 {
			return nil, fmt.Errorf("%w: total_quantity must be >= 0", ErrInvalidRequest)
		}
		fields["total_quantity"] = *patch.TotalQuantity
	}

	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}

	if len(fields) == 0 {
		return s.ledger.GetItem(ctx, itemID)
	}

	fields["updated_at"] = s.now().UTC()

	it, err := s.ledger.UpdateItem(ctx, itemID, fields, s.today())
	if err != nil {
		return nil, err
	}
	s.calc.invalidate(ctx, itemID)
	return it, nil
}

func (s *lendingService) BlockDates(ctx context.Context, itemID uuid.UUID, days []civil.Date, reason string) error {
	uid, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("%w: dates are required", ErrInvalidRequest)
	}
	for _, d := range days {
		if !d.IsValid() {
			return fmt.Errorf("%w: invalid date", ErrInvalidRequest)
		}
	}
	if err := s.ledger.BlockDates(ctx, itemID, days, strings.TrimSpace(reason), &uid); err != nil {
		return err
	}
	s.calc.invalidate(ctx, itemID)
	s.log.Info("dates blocked", zap.String("item_id", itemID.String()), zap.Int("days", len(days)))
	return nil
}

func (s *lendingService) UnblockDate(ctx context.Context, itemID uuid.UUID, day civil.Date) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.ledger.GetItem(ctx, itemID); err != nil {
		return err
	}
	// снятие несуществующей блокировки: не ошибка
	if _, err := s.ledger.UnblockDate(ctx, itemID, day); err != nil {
		return err
	}
	s.calc.invalidate(ctx, itemID)
	return nil
}

func (s *lendingService) ListActiveReservations(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, err := calendar.NewRange(rng.Start, rng.End); err != nil {
		return nil, ErrInvalidRange
	}
	return s.ledger.ListActiveReservations(ctx, itemID, rng)
}

func (s *lendingService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	uid, role, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.ledger.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin && res.SubmitterID != uid {
		// чужая бронь не раскрывается
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (s *lendingService) ListMyReservations(ctx context.Context, limit, offset int) ([]models.Reservation, error) {
	uid, _, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListBySubmitter(ctx, uid, limit, offset)
}

func (s *lendingService) ListItemReservations(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.ledger.ListByItem(ctx, itemID, limit, offset)
}

// UpdateStatus: админ двигает бронь по графу, владелец может только отменить.
func (s *lendingService) UpdateStatus(ctx context.Context, reservationID uuid.UUID, to models.ReservationStatus) (*models.Reservation, error) {
	uid, role, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if role != RoleAdmin {
		res, err := s.ledger.GetReservation(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		if res.SubmitterID != uid {
			return nil, ErrReservationNotFound
		}
		if to != models.ReservationCancelled {
			return nil, ErrForbidden
		}
	}

	res, from, err := s.ledger.UpdateStatus(ctx, reservationID, to, s.opts.StatusRetries)
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	s.calc.invalidate(ctx, res.ItemID)
	s.log.Info("reservation status changed",
		zap.String("reservation_id", res.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("by", uid.String()),
	)

	if s.events != nil {
		ev := ReservationStatusChangedEvent{
			ReservationID: res.ID,
			ItemID:        res.ItemID,
			SubmitterID:   res.SubmitterID,
			From:          string(from),
			To:            string(to),
			ChangedBy:     uid,
			ChangedAt:     res.UpdatedAt,
		}
		if err := s.events.PublishReservationStatusChanged(ctx, ev); err != nil {
			s.log.Warn("publish reservation status changed failed", zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}
	return res, nil
}

func (s *lendingService) RemainingOn(ctx context.Context, itemID uuid.UUID, day civil.Date) (int, error) {
	return s.calc.RemainingOn(ctx, itemID, day)
}

func (s *lendingService) RemainingOverRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) (int, error) {
	return s.calc.RemainingOverRange(ctx, itemID, rng)
}

func (s *lendingService) BuildAvailabilityMap(ctx context.Context, itemID uuid.UUID, days int) (*AvailabilityMap, error) {
	return s.calc.BuildAvailabilityMap(ctx, itemID, days)
}

func (s *lendingService) BlockedDates(ctx context.Context, itemID uuid.UUID, days int) ([]civil.Date, error) {
	return s.calc.BlockedDates(ctx, itemID, days)
}

func (s *lendingService) Check(ctx context.Context, in CheckInput) (*CheckResult, error) {
	return s.resolver.Check(ctx, in)
}

// Reserve: create_reservation. Повтор с тем же Idempotency-Key возвращает
// ранее созданную бронь.
func (s *lendingService) Reserve(ctx context.Context, in ReserveInput) (res *models.Reservation, err error) {
	uid, _, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if len(in.Documents) > 0 && s.documents == nil {
		return nil, ErrDocumentsBlocked
	}
	for _, d := range in.Documents {
		if d.Kind != models.DocumentLetter && d.Kind != models.DocumentValidID {
			return nil, fmt.Errorf("%w: unknown document kind %q", ErrInvalidRequest, d.Kind)
		}
	}

	idemKey := ""
	if s.idempotency != nil && strings.TrimSpace(in.IdempotencyKey) != "" {
		idemKey = uid.String() + ":" + strings.TrimSpace(in.IdempotencyKey)
		prevID, rerr := s.idempotency.Reserve(ctx, idemKey)
		if rerr != nil {
			return nil, storageErr("reserve idempotency key", rerr)
		}
		if prevID != nil {
			return s.ledger.GetReservation(ctx, *prevID)
		}
		defer func() {
			// отдельный контекст: исходный мог уже истечь
			mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err == nil {
				if merr := s.idempotency.MarkSuccess(mctx, idemKey, res.ID); merr != nil {
					s.log.Warn("idempotency mark success failed", zap.Error(merr))
				}
				return
			}
			if merr := s.idempotency.MarkFailure(mctx, idemKey); merr != nil {
				s.log.Warn("idempotency mark failure failed", zap.Error(merr))
			}
		}()
	}

	var uploaded []string
	attach := func(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationDocument, error) {
		docs, paths, err := s.uploadDocuments(ctx, reservationID, in.Documents)
		uploaded = paths
		return docs, err
	}

	res, err = s.resolver.Reserve(ctx, NewReservation{
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Range:       in.Range,
		Priority:    in.Priority,
		Message:     strings.TrimSpace(in.Message),
		Contact:     strings.TrimSpace(in.Contact),
		SubmitterID: uid,
	}, attach)
	if err != nil {
		s.discardDocuments(ctx, uploaded)
		return nil, err
	}

	s.calc.invalidate(ctx, res.ItemID)
	s.log.Info("reservation created",
		zap.String("reservation_id", res.ID.String()),
		zap.String("item_id", res.ItemID.String()),
		zap.Int32("quantity", res.Quantity),
		zap.Stringer("range", res.Range()),
	)

	if s.events != nil {
		ev := ReservationCreatedEvent{
			ReservationID: res.ID,
			ItemID:        res.ItemID,
			SubmitterID:   res.SubmitterID,
			Quantity:      res.Quantity,
			StartDate:     in.Range.Start.String(),
			EndDate:       in.Range.End.String(),
			Priority:      string(res.Priority),
			CreatedAt:     res.CreatedAt,
		}
		if err := s.events.PublishReservationCreated(ctx, ev); err != nil {
			s.log.Warn("publish reservation created failed", zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}
	return res, nil
}

func (s *lendingService) uploadDocuments(ctx context.Context, reservationID uuid.UUID, uploads []DocumentUpload) ([]models.ReservationDocument, []string, error) {
	docs := make([]models.ReservationDocument, 0, len(uploads))
	paths := make([]string, 0, len(uploads))
	for _, u := range uploads {
		objectPath := path.Join(s.opts.DocumentPrefix, reservationID.String(), string(u.Kind)+path.Ext(u.Filename))
		size, err := s.documents.Put(ctx, objectPath, u.ContentType, u.Body, map[string]string{
			"reservation_id": reservationID.String(),
			"kind":           string(u.Kind),
		})
		if err != nil {
			return nil, paths, storageErr("upload document", err)
		}
		paths = append(paths, objectPath)
		docs = append(docs, models.ReservationDocument{
			ID:          uuid.New(),
			Kind:        u.Kind,
			ObjectPath:  objectPath,
			ContentType: u.ContentType,
			SizeBytes:   size,
		})
	}
	return docs, paths, nil
}

// discardDocuments: бронь не записана, загруженные файлы не нужны
func (s *lendingService) discardDocuments(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, p := range paths {
		if err := s.documents.Delete(dctx, p); err != nil {
			s.log.Warn("discard uploaded document failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// AuditCapacity проходит по товарам с будущими активными бронями и
// флагует перебронированные дни.
func (s *lendingService) AuditCapacity(ctx context.Context, horizonDays int) (int, error) {
	ids, err := s.ledger.ItemsWithActiveFrom(ctx, s.today())
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
		days, err := s.calc.OverbookedDays(ctx, id, horizonDays)
		if err != nil {
			s.log.Error("capacity audit failed for item", zap.String("item_id", id.String()), zap.Error(err))
			continue
		}
		if len(days) == 0 {
			continue
		}
		flagged++
		s.calc.flagAnomalies(id, overbookedDates(days))
		for _, d := range days {
			s.log.Warn("overbooked day",
				zap.String("item_id", id.String()),
				zap.Stringer("date", d.Date),
				zap.Int64("reserved", d.Used),
				zap.Int32("total", d.Total),
			)
		}
	}
	return flagged, nil
}

func overbookedDates(days []OverbookedDay) []civil.Date {
	out := make([]civil.Date, len(days))
	for i, d := range days {
		out[i] = d.Date
	}
	return out
}
