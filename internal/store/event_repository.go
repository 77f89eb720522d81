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

// EventRepository определяет интерфейс для работы с событиями
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error
	AddNetWorth(ctx context.Context, id int64, delta int64) error
	ListActiveAtPlace(ctx context.Context, placeID int64) ([]*models.Event, error)
}

// PostgresEventRepository реализует EventRepository для PostgreSQL
type PostgresEventRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewEventRepository создает новый репозиторий событий
func NewEventRepository(db *pgxpool.Pool, logger *zap.Logger) EventRepository {
	return &PostgresEventRepository{
		db:     db,
		logger: logger,
	}
}

const eventColumns = `id, place_id, creator_id, price, start_date, days, status, net_worth, content_ref, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID, &event.PlaceID, &event.CreatorID, &event.Price,
		&event.StartDate, &event.Days, &event.Status, &event.NetWorth,
		&event.ContentRef, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Create создает новое событие
func (r *PostgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (place_id, creator_id, price, start_date, days, status, net_worth, content_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.Status == "" {
		event.Status = models.EventStatusSubmitted
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		event.PlaceID, event.CreatorID, event.Price, event.StartDate,
		event.Days, event.Status, event.NetWorth, event.ContentRef,
		event.CreatedAt, event.UpdatedAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания события: %w", err)
	}

	r.logger.Info("событие создано",
		zap.Int64("event_id", event.ID),
		zap.Int64("place_id", event.PlaceID),
		zap.Int64("creator_id", event.CreatorID))

	return nil
}

// GetByID получает событие по ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(querierFromCtx(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: событие %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения события: %w", err)
	}

	return event, nil
}

// Update обновляет параметры события
func (r *PostgresEventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET price = $2, start_date = $3, days = $4, status = $5,
		    net_worth = $6, content_ref = $7, updated_at = $8
		WHERE id = $1`

	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now()
	}

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query,
		event.ID, event.Price, event.StartDate, event.Days, event.Status,
		event.NetWorth, event.ContentRef, event.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("ошибка обновления события: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: событие %d", models.ErrNotFound, event.ID)
	}

	return nil
}

// UpdateStatus изменяет статус события
func (r *PostgresEventRepository) UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error {
	query := `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса события: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: событие %d", models.ErrNotFound, id)
	}

	r.logger.Info("статус события изменен",
		zap.Int64("event_id", id),
		zap.String("status", string(status)))
	return nil
}

// AddNetWorth изменяет накопленные эскроу-средства события.
// Отрицательная дельта не может увести накопления ниже нуля.
func (r *PostgresEventRepository) AddNetWorth(ctx context.Context, id int64, delta int64) error {
	query := `UPDATE events SET net_worth = net_worth + $2, updated_at = $3 WHERE id = $1 AND net_worth + $2 >= 0`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, delta, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка изменения накоплений события: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: недостаточно средств в эскроу события %d", models.ErrInvariant, id)
	}

	return nil
}

// ListActiveAtPlace получает поданные и утвержденные события площадки.
// Используется проверкой пересечения дат при подаче и изменении событий.
func (r *PostgresEventRepository) ListActiveAtPlace(ctx context.Context, placeID int64) ([]*models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE place_id = $1 AND status IN ($2, $3)
		ORDER BY start_date`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, placeID,
		models.EventStatusSubmitted, models.EventStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения событий площадки: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования события: %w", err)
		}
		events = append(events, event)
	}

	return events, nil
}
