package store

import (
	"context"
	"fmt"
	"time"

	"scena-market/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LedgerRepository определяет интерфейс журнала движения средств.
// Журнал только пополняется; балансы изменяются вместе с проводкой
// в одной транзакции.
type LedgerRepository interface {
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	AddBalance(ctx context.Context, accountID int64, delta int64) error
	ListEntriesByEvent(ctx context.Context, eventID int64) ([]*models.LedgerEntry, error)
	ListEntriesByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error)
}

// PostgresLedgerRepository реализует LedgerRepository для PostgreSQL
type PostgresLedgerRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLedgerRepository создает новый репозиторий журнала
func NewLedgerRepository(db *pgxpool.Pool, logger *zap.Logger) LedgerRepository {
	return &PostgresLedgerRepository{
		db:     db,
		logger: logger,
	}
}

// AppendEntry добавляет проводку в журнал
func (r *PostgresLedgerRepository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (type, from_account_id, to_account_id, event_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		entry.Type, entry.FromAccountID, entry.ToAccountID,
		entry.EventID, entry.Amount, entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("ошибка записи проводки: %w", err)
	}

	return nil
}

// AddBalance изменяет баланс аккаунта. Условие не даст балансу уйти
// в минус: списание сверх остатка — нарушение бизнес-инварианта.
func (r *PostgresLedgerRepository) AddBalance(ctx context.Context, accountID int64, delta int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1 AND balance + $2 >= 0`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, accountID, delta, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка изменения баланса: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Либо аккаунта нет, либо средств недостаточно — различаем по знаку
		if delta < 0 {
			return fmt.Errorf("%w: недостаточно средств на счете %d", models.ErrInvariant, accountID)
		}
		return fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, accountID)
	}

	return nil
}

const ledgerColumns = `id, type, from_account_id, to_account_id, event_id, amount, created_at`

// ListEntriesByEvent получает проводки события в порядке записи
func (r *PostgresLedgerRepository) ListEntriesByEvent(ctx context.Context, eventID int64) ([]*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE event_id = $1 ORDER BY id`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения проводок события: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry := &models.LedgerEntry{}
		err := rows.Scan(
			&entry.ID, &entry.Type, &entry.FromAccountID, &entry.ToAccountID,
			&entry.EventID, &entry.Amount, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проводки: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ListEntriesByAccount получает последние проводки аккаунта
func (r *PostgresLedgerRepository) ListEntriesByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения проводок аккаунта: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry := &models.LedgerEntry{}
		err := rows.Scan(
			&entry.ID, &entry.Type, &entry.FromAccountID, &entry.ToAccountID,
			&entry.EventID, &entry.Amount, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проводки: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
