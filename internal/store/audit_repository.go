package store

import (
	"context"
	"fmt"
	"time"

	"scena-market/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuditRepository определяет интерфейс журнала аудита. Журнал только
// пополняется: каждая принятая мутация добавляет ровно одну запись
// в своей транзакции, в порядке вызовов.
type AuditRepository interface {
	Append(ctx context.Context, record *models.AuditRecord) error
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*models.AuditRecord, error)
}

// PostgresAuditRepository реализует AuditRepository для PostgreSQL
type PostgresAuditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAuditRepository создает новый репозиторий аудита
func NewAuditRepository(db *pgxpool.Pool, logger *zap.Logger) AuditRepository {
	return &PostgresAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append добавляет запись аудита
func (r *PostgresAuditRepository) Append(ctx context.Context, record *models.AuditRecord) error {
	query := `
		INSERT INTO audit_records (operation, actor_id, entity, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		record.Operation, record.ActorID, record.Entity,
		record.EntityID, record.Payload, record.CreatedAt,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}

	return nil
}

// ListAfter получает записи аудита после указанного ID (для догоняющего
// чтения индексатором)
func (r *PostgresAuditRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*models.AuditRecord, error) {
	query := `
		SELECT id, operation, actor_id, entity, entity_id, payload, created_at
		FROM audit_records
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей аудита: %w", err)
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		record := &models.AuditRecord{}
		err := rows.Scan(
			&record.ID, &record.Operation, &record.ActorID, &record.Entity,
			&record.EntityID, &record.Payload, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}
