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

// PlaceRepository определяет интерфейс для работы с площадками
type PlaceRepository interface {
	Create(ctx context.Context, place *models.Place) error
	GetByID(ctx context.Context, id int64) (*models.Place, error)
	Update(ctx context.Context, place *models.Place) error
	List(ctx context.Context) ([]*models.Place, error)
}

// PostgresPlaceRepository реализует PlaceRepository для PostgreSQL
type PostgresPlaceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPlaceRepository создает новый репозиторий площадок
func NewPlaceRepository(db *pgxpool.Pool, logger *zap.Logger) PlaceRepository {
	return &PostgresPlaceRepository{
		db:     db,
		logger: logger,
	}
}

const placeColumns = `id, requester_id, provider_id, max_tickets, min_tickets, min_price, min_days, days_before_cancel, deposit_size, available, status, created_at, updated_at`

func scanPlace(row pgx.Row) (*models.Place, error) {
	place := &models.Place{}
	err := row.Scan(
		&place.ID, &place.RequesterID, &place.ProviderID,
		&place.MaxTickets, &place.MinTickets, &place.MinPrice, &place.MinDays,
		&place.DaysBeforeCancel, &place.DepositSize, &place.Available,
		&place.Status, &place.CreatedAt, &place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return place, nil
}

// Create создает новую площадку
func (r *PostgresPlaceRepository) Create(ctx context.Context, place *models.Place) error {
	query := `
		INSERT INTO places (requester_id, provider_id, max_tickets, min_tickets, min_price, min_days, days_before_cancel, deposit_size, available, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now()
	}
	if place.UpdatedAt.IsZero() {
		place.UpdatedAt = place.CreatedAt
	}
	if place.Status == "" {
		place.Status = models.PlaceStatusRequested
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		place.RequesterID, place.ProviderID, place.MaxTickets, place.MinTickets,
		place.MinPrice, place.MinDays, place.DaysBeforeCancel, place.DepositSize,
		place.Available, place.Status, place.CreatedAt, place.UpdatedAt,
	).Scan(&place.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания площадки: %w", err)
	}

	r.logger.Info("площадка создана",
		zap.Int64("place_id", place.ID),
		zap.Int64("requester_id", place.RequesterID))

	return nil
}

// GetByID получает площадку по ID
func (r *PostgresPlaceRepository) GetByID(ctx context.Context, id int64) (*models.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE id = $1`

	place, err := scanPlace(querierFromCtx(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: площадка %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения площадки: %w", err)
	}

	return place, nil
}

// Update обновляет площадку
func (r *PostgresPlaceRepository) Update(ctx context.Context, place *models.Place) error {
	query := `
		UPDATE places
		SET provider_id = $2, max_tickets = $3, min_tickets = $4, min_price = $5,
		    min_days = $6, days_before_cancel = $7, deposit_size = $8,
		    available = $9, status = $10, updated_at = $11
		WHERE id = $1`

	if place.UpdatedAt.IsZero() {
		place.UpdatedAt = time.Now()
	}

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query,
		place.ID, place.ProviderID, place.MaxTickets, place.MinTickets,
		place.MinPrice, place.MinDays, place.DaysBeforeCancel, place.DepositSize,
		place.Available, place.Status, place.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("ошибка обновления площадки: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: площадка %d", models.ErrNotFound, place.ID)
	}

	return nil
}

// List получает все площадки
func (r *PostgresPlaceRepository) List(ctx context.Context) ([]*models.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places ORDER BY id`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка площадок: %w", err)
	}
	defer rows.Close()

	var places []*models.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования площадки: %w", err)
		}
		places = append(places, place)
	}

	return places, nil
}
