package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB           *gorm.DB
	Items        ItemRepo
	Reservations ReservationRepo
	BlockedDates BlockedDateRepo
	Documents    DocumentRepo

	tx   func(ctx context.Context, fn func(tx *Repository) error) error
	ping func(ctx context.Context) error
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:           db,
		Items:        NewItemRepo(db),
		Reservations: NewReservationRepo(db),
		BlockedDates: NewBlockedDateRepo(db),
		Documents:    NewDocumentRepo(db),
	}
}

func New(db *gorm.DB) *Repository {
	r := buildRepository(db)
	r.tx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(buildRepository(tx))
		})
	}
	r.ping = func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return r
}

// Глобальная транзакция на весь набор репо.
// Внутри fn использовать только tx, не r.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.tx == nil {
		return fn(r)
	}
	return r.tx(ctx, fn)
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}
