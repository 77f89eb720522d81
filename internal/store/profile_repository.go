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

// ProfileRepository определяет интерфейс для работы с профилями распределения
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.DistributionProfile) error
	GetByID(ctx context.Context, id int64) (*models.DistributionProfile, error)
	UpdateShares(ctx context.Context, profileID int64, shares []models.ProfileShare) error
	SetDefault(ctx context.Context, profileID int64) error
	SetForEvent(ctx context.Context, profileID, eventID int64) error
	GetDefault(ctx context.Context) (*models.DistributionProfile, error)
	GetForEvent(ctx context.Context, eventID int64) (*models.DistributionProfile, error)
}

// PostgresProfileRepository реализует ProfileRepository для PostgreSQL
type PostgresProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewProfileRepository создает новый репозиторий профилей распределения
func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) ProfileRepository {
	return &PostgresProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Create создает профиль вместе с упорядоченным списком долей
func (r *PostgresProfileRepository) Create(ctx context.Context, profile *models.DistributionProfile) error {
	q := querierFromCtx(ctx, r.db)

	query := `
		INSERT INTO distribution_profiles (name, is_default, event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}

	err := q.QueryRow(ctx, query,
		profile.Name, profile.IsDefault, profile.EventID,
		profile.CreatedAt, profile.UpdatedAt,
	).Scan(&profile.ID)
	if err != nil {
		return fmt.Errorf("ошибка создания профиля распределения: %w", err)
	}

	if err := r.insertShares(ctx, q, profile.ID, profile.Shares); err != nil {
		return err
	}

	r.logger.Info("профиль распределения создан",
		zap.Int64("profile_id", profile.ID),
		zap.String("name", profile.Name),
		zap.Int("recipients", len(profile.Shares)))

	return nil
}

// insertShares добавляет доли профиля с сохранением порядка
func (r *PostgresProfileRepository) insertShares(ctx context.Context, q Querier, profileID int64, shares []models.ProfileShare) error {
	query := `
		INSERT INTO profile_shares (profile_id, position, recipient_id, share)
		VALUES ($1, $2, $3, $4)`

	for i, share := range shares {
		if _, err := q.Exec(ctx, query, profileID, i, share.RecipientID, share.Share); err != nil {
			return fmt.Errorf("ошибка сохранения доли профиля: %w", err)
		}
	}
	return nil
}

// loadShares читает доли профиля в сохраненном порядке
func (r *PostgresProfileRepository) loadShares(ctx context.Context, q Querier, profileID int64) ([]models.ProfileShare, error) {
	query := `
		SELECT recipient_id, share
		FROM profile_shares
		WHERE profile_id = $1
		ORDER BY position`

	rows, err := q.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения долей профиля: %w", err)
	}
	defer rows.Close()

	var shares []models.ProfileShare
	for rows.Next() {
		var share models.ProfileShare
		if err := rows.Scan(&share.RecipientID, &share.Share); err != nil {
			return nil, fmt.Errorf("ошибка сканирования доли профиля: %w", err)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// GetByID получает профиль по ID вместе с долями
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id int64) (*models.DistributionProfile, error) {
	q := querierFromCtx(ctx, r.db)

	query := `
		SELECT id, name, is_default, event_id, created_at, updated_at
		FROM distribution_profiles WHERE id = $1`

	profile := &models.DistributionProfile{}
	err := q.QueryRow(ctx, query, id).Scan(
		&profile.ID, &profile.Name, &profile.IsDefault, &profile.EventID,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: профиль %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}

	profile.Shares, err = r.loadShares(ctx, q, profile.ID)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// UpdateShares заменяет доли профиля
func (r *PostgresProfileRepository) UpdateShares(ctx context.Context, profileID int64, shares []models.ProfileShare) error {
	q := querierFromCtx(ctx, r.db)

	result, err := q.Exec(ctx, `UPDATE distribution_profiles SET updated_at = $2 WHERE id = $1`, profileID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}

	if _, err := q.Exec(ctx, `DELETE FROM profile_shares WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("ошибка удаления старых долей профиля: %w", err)
	}

	return r.insertShares(ctx, q, profileID, shares)
}

// SetDefault делает профиль профилем по умолчанию (единственным)
func (r *PostgresProfileRepository) SetDefault(ctx context.Context, profileID int64) error {
	q := querierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, `UPDATE distribution_profiles SET is_default = FALSE WHERE is_default`); err != nil {
		return fmt.Errorf("ошибка сброса профиля по умолчанию: %w", err)
	}

	result, err := q.Exec(ctx,
		`UPDATE distribution_profiles SET is_default = TRUE, updated_at = $2 WHERE id = $1`,
		profileID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка установки профиля по умолчанию: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}

	r.logger.Info("профиль по умолчанию установлен", zap.Int64("profile_id", profileID))
	return nil
}

// SetForEvent привязывает профиль к событию, снимая прежнее переопределение
func (r *PostgresProfileRepository) SetForEvent(ctx context.Context, profileID, eventID int64) error {
	q := querierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx,
		`UPDATE distribution_profiles SET event_id = NULL WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("ошибка снятия прежнего профиля события: %w", err)
	}

	result, err := q.Exec(ctx,
		`UPDATE distribution_profiles SET event_id = $2, updated_at = $3 WHERE id = $1`,
		profileID, eventID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка привязки профиля к событию: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: профиль %d", models.ErrNotFound, profileID)
	}

	r.logger.Info("профиль события установлен",
		zap.Int64("profile_id", profileID),
		zap.Int64("event_id", eventID))
	return nil
}

// GetDefault получает профиль по умолчанию
func (r *PostgresProfileRepository) GetDefault(ctx context.Context) (*models.DistributionProfile, error) {
	q := querierFromCtx(ctx, r.db)

	query := `
		SELECT id, name, is_default, event_id, created_at, updated_at
		FROM distribution_profiles WHERE is_default`

	profile := &models.DistributionProfile{}
	err := q.QueryRow(ctx, query).Scan(
		&profile.ID, &profile.Name, &profile.IsDefault, &profile.EventID,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: профиль по умолчанию", models.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения профиля по умолчанию: %w", err)
	}

	profile.Shares, err = r.loadShares(ctx, q, profile.ID)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// GetForEvent получает профиль-переопределение события
func (r *PostgresProfileRepository) GetForEvent(ctx context.Context, eventID int64) (*models.DistributionProfile, error) {
	q := querierFromCtx(ctx, r.db)

	query := `
		SELECT id, name, is_default, event_id, created_at, updated_at
		FROM distribution_profiles WHERE event_id = $1`

	profile := &models.DistributionProfile{}
	err := q.QueryRow(ctx, query, eventID).Scan(
		&profile.ID, &profile.Name, &profile.IsDefault, &profile.EventID,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: профиль события %d", models.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("ошибка получения профиля события: %w", err)
	}

	profile.Shares, err = r.loadShares(ctx, q, profile.ID)
	if err != nil {
		return nil, err
	}

	return profile, nil
}
