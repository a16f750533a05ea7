package repository

import (
	"context"

	"lending-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepo interface {
	CreateBatch(ctx context.Context, docs []models.ReservationDocument) error
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationDocument, error)
}

type documentRepo struct{ db *gorm.DB }

func NewDocumentRepo(db *gorm.DB) DocumentRepo { return &documentRepo{db: db} }

func (r *documentRepo) CreateBatch(ctx context.Context, docs []models.ReservationDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&docs).Error
}

func (r *documentRepo) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationDocument, error) {
	var list []models.ReservationDocument
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
