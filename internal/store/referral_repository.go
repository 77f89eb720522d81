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

// ReferralRepository определяет интерфейс для работы с реферальными связями.
// Сама привязка хранится в accounts.referred_by; таблица referrals — это
// журнал установленных связей.
type ReferralRepository interface {
	CreateReferral(ctx context.Context, referral *models.Referral) error
	GetByRefereeID(ctx context.Context, refereeID int64) (*models.Referral, error)
	GetReferrerOf(ctx context.Context, accountID int64) (*int64, error)
}

// PostgresReferralRepository реализует ReferralRepository для PostgreSQL
type PostgresReferralRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewReferralRepository создает новый репозиторий рефералов
func NewReferralRepository(db *pgxpool.Pool, logger *zap.Logger) ReferralRepository {
	return &PostgresReferralRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReferral создает запись о реферальной связи
func (r *PostgresReferralRepository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	query := `
		INSERT INTO referrals (referrer_id, referee_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now()
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		referral.ReferrerID, referral.RefereeID, referral.CreatedAt,
	).Scan(&referral.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания реферала: %w", err)
	}

	return nil
}

// GetByRefereeID получает реферальную связь по ID приглашенного аккаунта
func (r *PostgresReferralRepository) GetByRefereeID(ctx context.Context, refereeID int64) (*models.Referral, error) {
	query := `
		SELECT id, referrer_id, referee_id, created_at
		FROM referrals
		WHERE referee_id = $1`

	referral := &models.Referral{}
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, refereeID).Scan(
		&referral.ID,
		&referral.ReferrerID,
		&referral.RefereeID,
		&referral.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: реферал аккаунта %d", models.ErrNotFound, refereeID)
		}
		return nil, fmt.Errorf("ошибка получения реферала: %w", err)
	}

	return referral, nil
}

// GetReferrerOf возвращает реферера аккаунта (nil, если привязки нет)
func (r *PostgresReferralRepository) GetReferrerOf(ctx context.Context, accountID int64) (*int64, error) {
	query := `SELECT referred_by FROM accounts WHERE id = $1`

	var referrerID *int64
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, accountID).Scan(&referrerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: аккаунт %d", models.ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("ошибка получения реферера: %w", err)
	}

	return referrerID, nil
}
