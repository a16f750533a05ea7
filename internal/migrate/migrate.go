package migrate

import (
	"context"

	"lending-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, pg_trgm
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // индексы для поиска пересечений
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
	CreateSearchIndexes    bool // GIN trgm для поиска по items.name
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
		CreateSearchIndexes:    true,
	}
}

type step struct {
	name string
	sql  string
}

var extensionSteps = []step{
	{"pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"pg_trgm", `CREATE EXTENSION IF NOT EXISTS pg_trgm`},
}

var triggerSteps = []step{
	{"set_updated_at", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;`},
	{"trg_items_updated", `
DROP TRIGGER IF EXISTS trg_items_updated ON items;
CREATE TRIGGER trg_items_updated BEFORE UPDATE ON items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`},
	{"trg_reservations_updated", `
DROP TRIGGER IF EXISTS trg_reservations_updated ON reservations;
CREATE TRIGGER trg_reservations_updated BEFORE UPDATE ON reservations
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`},
}

var defaultSteps = []step{
	{"default items.is_active", `ALTER TABLE items ALTER COLUMN is_active SET DEFAULT true`},
}

var checkSteps = []step{
	{"chk items.total_quantity", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_total_quantity_non_negative,
	ADD CONSTRAINT chk_items_total_quantity_non_negative
	CHECK (total_quantity >= 0);`},
	{"chk reservations.quantity", `
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_quantity_gt_zero,
	ADD CONSTRAINT chk_reservations_quantity_gt_zero
	CHECK (quantity > 0);`},
	{"chk reservations.range", `
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_range,
	ADD CONSTRAINT chk_reservations_range
	CHECK (start_date <= end_date);`},
	{"chk reservations.status", `
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_status_allowed,
	ADD CONSTRAINT chk_reservations_status_allowed
	CHECK (status IN ('pending','approved','in_use','rejected','cancelled','returned'));`},
	{"chk reservations.priority", `
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_priority_allowed,
	ADD CONSTRAINT chk_reservations_priority_allowed
	CHECK (priority IN ('low','medium','high'));`},
	{"chk reservation_documents.kind", `
ALTER TABLE reservation_documents
	DROP CONSTRAINT IF EXISTS chk_reservation_documents_kind,
	ADD CONSTRAINT chk_reservation_documents_kind
	CHECK (kind IN ('letter','valid_id'));`},
}

var indexSteps = []step{
	// Пересечения по диапазону считаются только по активным броням
	{"ix reservations item_range", `
CREATE INDEX IF NOT EXISTS ix_reservations_item_range_active
ON reservations (item_id, start_date, end_date)
WHERE status IN ('pending','approved','in_use');`},
	{"ix reservations submitter_created", `
CREATE INDEX IF NOT EXISTS ix_reservations_submitter_created
ON reservations (submitter_id, created_at DESC);`},
	{"ix items active_name", `
CREATE INDEX IF NOT EXISTS ix_items_active_name
ON items (is_active, name);`},
}

var searchIndexSteps = []step{
	{"gin items.name", `
CREATE INDEX IF NOT EXISTS gin_items_name_trgm
ON items USING gin (name gin_trgm_ops);`},
}

var fkSteps = []step{
	{"fk reservations.item_id", `
ALTER TABLE reservations
  DROP CONSTRAINT IF EXISTS fk_reservations_item,
  ADD CONSTRAINT fk_reservations_item
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE RESTRICT;`},
	{"fk blocked_dates.item_id", `
ALTER TABLE blocked_dates
  DROP CONSTRAINT IF EXISTS fk_blocked_dates_item,
  ADD CONSTRAINT fk_blocked_dates_item
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE;`},
}

func runSteps(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("migration step failed", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}

func MigrateLendingDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	db = db.WithContext(ctx)
	log.Info("Начало миграции базы выдачи инвентаря")

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := runSteps(db, log, extensionSteps); err != nil {
			return err
		}
		log.Info("Расширения созданы")
	}

	log.Info("Создание таблиц: items, reservations, blocked_dates, reservation_documents")
	// FK reservation_documents -> reservations создаёт сам AutoMigrate (has-many)
	if err := db.AutoMigrate(
		&models.Item{},
		&models.Reservation{},
		&models.BlockedDate{},
		&models.ReservationDocument{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if err := runSteps(db, log, defaultSteps); err != nil {
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := runSteps(db, log, triggerSteps); err != nil {
			return err
		}
		log.Info("Триггеры созданы")
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := runSteps(db, log, checkSteps); err != nil {
			return err
		}
		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := runSteps(db, log, indexSteps); err != nil {
			return err
		}
		log.Info("Индексы созданы")
	}

	if opt.CreateSearchIndexes && opt.CreateExtensions {
		log.Info("Создание GIN(trgm) индексов для поиска")
		if err := runSteps(db, log, searchIndexSteps); err != nil {
			return err
		}
		log.Info("GIN индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := runSteps(db, log, fkSteps); err != nil {
			return err
		}
		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы выдачи инвентаря успешно завершена")
	return nil
}
