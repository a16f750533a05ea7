package repository

import (
	"context"

	"lending-service/internal/calendar"
	"lending-service/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockedDateRepo interface {
	// Повторная блокировка того же дня обновляет только reason
	Add(ctx context.Context, days []models.BlockedDate) error
	Remove(ctx context.Context, itemID uuid.UUID, day civil.Date) (bool, error)
	ListInRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]civil.Date, error)
}

type blockedDateRepo struct{ db *gorm.DB }

func NewBlockedDateRepo(db *gorm.DB) BlockedDateRepo { return &blockedDateRepo{db: db} }

func (r *blockedDateRepo) Add(ctx context.Context, days []models.BlockedDate) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).
		Create(&days).Error
}

func (r *blockedDateRepo) Remove(ctx context.Context, itemID uuid.UUID, day civil.Date) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("item_id = ? AND day = ?", itemID, calendar.ToTime(day)).
		Delete(&models.BlockedDate{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *blockedDateRepo) ListInRange(ctx context.Context, itemID uuid.UUID, rng calendar.Range) ([]civil.Date, error) {
	var rows []models.BlockedDate
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND day BETWEEN ? AND ?", itemID, calendar.ToTime(rng.Start), calendar.ToTime(rng.End)).
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]civil.Date, 0, len(rows))
	for _, b := range rows {
		out = append(out, calendar.FromTime(b.Day))
	}
	return out, nil
}
