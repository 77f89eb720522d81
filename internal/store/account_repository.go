package store

import (
	"context"
	"fmt"
	"time"

	"scena-market/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AccountRepository определяет интерфейс для работы с аккаунтами.
// Таблица аккаунтов хранит и назначение ролей, и реферальную привязку.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	UpdateLastActive(ctx context.Context, id int64, at time.Time) error
	SetReferrer(ctx context.Context, refereeID, referrerID int64) error
	IncrementReferralCount(ctx context.Context, id int64) error
}

// PostgresAccountRepository реализует AccountRepository для PostgreSQL
type PostgresAccountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAccountRepository создает новый репозиторий аккаунтов
func NewAccountRepository(db *pgxpool.Pool, logger *zap.Logger) AccountRepository {
	return &PostgresAccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, username, password_hash, role, balance, referral_count, referred_by, last_active_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID, &account.Username, &account.PasswordHash, &account.Role,
		&account.Balance, &account.ReferralCount, &account.ReferredBy,
		&account.LastActiveAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create создает новый аккаунт
func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (username, password_hash, role, balance, referral_count, referred_by, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		account.Username, account.PasswordHash, account.Role, account.Balance,
		account.ReferralCount, account.ReferredBy, account.LastActiveAt,
		account.CreatedAt, account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}

	r.logger.Info("аккаунт создан",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)))

	return nil
}

// GetByID получает аккаунт по ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(querierFromCtx(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}

	return account, nil
}

// GetByUsername получает аккаунт по имени пользователя
func (r *PostgresAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	account, err := scanAccount(querierFromCtx(ctx, r.db).QueryRow(ctx, query, username))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: аккаунт %q", models.ErrNotFound, username)
		}
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}

	return account, nil
}

// UpdateRole изменяет роль аккаунта
func (r *PostgresAccountRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	query := `UPDATE accounts SET role = $2, updated_at = $3 WHERE id = $1`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, role, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка изменения роли: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
	}

	r.logger.Info("роль аккаунта изменена",
		zap.Int64("account_id", id),
		zap.String("role", string(role)))
	return nil
}

// UpdateLastActive обновляет время последней покупательской активности
func (r *PostgresAccountRepository) UpdateLastActive(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE accounts SET last_active_at = $2, updated_at = $2 WHERE id = $1`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("ошибка обновления активности: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
	}
	return nil
}

// SetReferrer устанавливает реферера аккаунта. Привязка одноразовая:
// запрос не трогает строку с уже заполненным referred_by.
func (r *PostgresAccountRepository) SetReferrer(ctx context.Context, refereeID, referrerID int64) error {
	query := `UPDATE accounts SET referred_by = $2, updated_at = $3 WHERE id = $1 AND referred_by IS NULL`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, refereeID, referrerID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка установки реферера: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: реферер аккаунта %d уже установлен", models.ErrState, refereeID)
	}
	return nil
}

// IncrementReferralCount увеличивает счетчик прямых рефералов
func (r *PostgresAccountRepository) IncrementReferralCount(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET referral_count = referral_count + 1, updated_at = $2 WHERE id = $1`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка обновления счетчика рефералов: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, id)
	}
	return nil
}
