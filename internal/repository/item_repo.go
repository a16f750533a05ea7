package repository

import (
	"context"
	"errors"
	"strings"

	"lending-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemFilter struct {
	Search     string
	OnlyActive bool
	Limit      int
	Offset     int
}

type ItemRepo interface {
	Create(ctx context.Context, it *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// Строка товара под SELECT ... FOR UPDATE; вызывать только внутри WithTx
	LockByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	List(ctx context.Context, f ItemFilter) ([]models.Item, int64, error)
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepo(db *gorm.DB) ItemRepo { return &itemRepo{db: db} }

func (r *itemRepo) Create(ctx context.Context, it *models.Item) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	if err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(fields)
	return tx.RowsAffected > 0, tx.Error
}

func (r *itemRepo) List(ctx context.Context, f ItemFilter) ([]models.Item, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Item{})
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("name ILIKE ?", "%"+s+"%")
	}
	if f.OnlyActive {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var list []models.Item
	if err := q.Order("name ASC, id ASC").Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
