package repository

import (
	"context"
	"errors"
	"time"

	"lending-service/internal/calendar"
	"lending-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepo interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)

	// Активные брони товара, пересекающие диапазон; start_date ASC, затем created_at ASC
	ListActive(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error)
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Reservation, error)
	ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error)

	// Условный переход: срабатывает только если текущий статус равен from
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error)

	// Товары, у которых есть активные брони, заканчивающиеся не раньше from
	ItemIDsWithActiveFrom(ctx context.Context, from time.Time) ([]uuid.UUID, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(res).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Documents").
		First(&res, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) ListActive(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			itemID, models.ActiveStatuses, calendar.ToTime(rng.End), calendar.ToTime(rng.Start)).
		Order("start_date ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	var list []models.Reservation
	q := r.db.WithContext(ctx).Where("submitter_id = ?", submitterID).Order("created_at DESC")
	err := paginate(q, limit, offset).Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListByItem(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]models.Reservation, error) {
	var list []models.Reservation
	q := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("start_date ASC, created_at ASC")
	err := paginate(q, limit, offset).Find(&list).Error
	return list, err
}

func (r *reservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) ItemIDsWithActiveFrom(ctx context.Context, from time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status IN ? AND end_date >= ?", models.ActiveStatuses, from).
		Distinct("item_id").
		Pluck("item_id", &ids).Error
	return ids, err
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
