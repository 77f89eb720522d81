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

// TicketRepository определяет интерфейс для работы с категориями и билетами
type TicketRepository interface {
	CreateCategory(ctx context.Context, category *models.TicketCategory) error
	GetCategory(ctx context.Context, id int64) (*models.TicketCategory, error)
	ListCategories(ctx context.Context, eventID int64) ([]*models.TicketCategory, error)
	ReserveQuota(ctx context.Context, categoryID int64, quantity int) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	ListTicketsByEvent(ctx context.Context, eventID int64) ([]*models.Ticket, error)
	MarkRedeemed(ctx context.Context, id int64, at time.Time) error
}

// PostgresTicketRepository реализует TicketRepository для PostgreSQL
type PostgresTicketRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewTicketRepository создает новый репозиторий билетов
func NewTicketRepository(db *pgxpool.Pool, logger *zap.Logger) TicketRepository {
	return &PostgresTicketRepository{
		db:     db,
		logger: logger,
	}
}

// CreateCategory создает категорию билетов
func (r *PostgresTicketRepository) CreateCategory(ctx context.Context, category *models.TicketCategory) error {
	query := `
		INSERT INTO ticket_categories (event_id, name, discount_bps, quota, sold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		category.EventID, category.Name, category.DiscountBps,
		category.Quota, category.Sold, category.CreatedAt,
	).Scan(&category.ID)

	if err != nil {
		return fmt.Errorf("ошибка создания категории билетов: %w", err)
	}

	r.logger.Info("категория билетов создана",
		zap.Int64("category_id", category.ID),
		zap.Int64("event_id", category.EventID),
		zap.String("name", category.Name))

	return nil
}

// GetCategory получает категорию по ID
func (r *PostgresTicketRepository) GetCategory(ctx context.Context, id int64) (*models.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, discount_bps, quota, sold, created_at
		FROM ticket_categories WHERE id = $1`

	category := &models.TicketCategory{}
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&category.ID, &category.EventID, &category.Name,
		&category.DiscountBps, &category.Quota, &category.Sold, &category.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: категория %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения категории: %w", err)
	}

	return category, nil
}

// ListCategories получает категории события
func (r *PostgresTicketRepository) ListCategories(ctx context.Context, eventID int64) ([]*models.TicketCategory, error) {
	query := `
		SELECT id, event_id, name, discount_bps, quota, sold, created_at
		FROM ticket_categories WHERE event_id = $1
		ORDER BY id`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения категорий: %w", err)
	}
	defer rows.Close()

	var categories []*models.TicketCategory
	for rows.Next() {
		category := &models.TicketCategory{}
		err := rows.Scan(
			&category.ID, &category.EventID, &category.Name,
			&category.DiscountBps, &category.Quota, &category.Sold, &category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования категории: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, nil
}

// ReserveQuota увеличивает счетчик проданных билетов с проверкой квоты
// в том же запросе: условие не пропустит счетчик выше квоты ни при каком
// порядке конкурентных вызовов (quota = 0 означает безлимит).
func (r *PostgresTicketRepository) ReserveQuota(ctx context.Context, categoryID int64, quantity int) error {
	query := `
		UPDATE ticket_categories
		SET sold = sold + $2
		WHERE id = $1 AND (quota = 0 OR sold + $2 <= quota)`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, categoryID, quantity)
	if err != nil {
		return fmt.Errorf("ошибка резервирования квоты: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: квота категории %d исчерпана", models.ErrInvariant, categoryID)
	}

	return nil
}

// CreateTicket выпускает билет
func (r *PostgresTicketRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (event_id, category_id, owner_id, price, redeemed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}

	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query,
		ticket.EventID, ticket.CategoryID, ticket.OwnerID,
		ticket.Price, ticket.Redeemed, ticket.CreatedAt,
	).Scan(&ticket.ID)

	if err != nil {
		return fmt.Errorf("ошибка выпуска билета: %w", err)
	}

	return nil
}

// GetTicket получает билет по ID
func (r *PostgresTicketRepository) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `
		SELECT id, event_id, category_id, owner_id, price, redeemed, redeemed_at, created_at
		FROM tickets WHERE id = $1`

	ticket := &models.Ticket{}
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&ticket.ID, &ticket.EventID, &ticket.CategoryID, &ticket.OwnerID,
		&ticket.Price, &ticket.Redeemed, &ticket.RedeemedAt, &ticket.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: билет %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения билета: %w", err)
	}

	return ticket, nil
}

// ListTicketsByEvent получает все билеты события
func (r *PostgresTicketRepository) ListTicketsByEvent(ctx context.Context, eventID int64) ([]*models.Ticket, error) {
	query := `
		SELECT id, event_id, category_id, owner_id, price, redeemed, redeemed_at, created_at
		FROM tickets WHERE event_id = $1
		ORDER BY id`

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения билетов события: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		err := rows.Scan(
			&ticket.ID, &ticket.EventID, &ticket.CategoryID, &ticket.OwnerID,
			&ticket.Price, &ticket.Redeemed, &ticket.RedeemedAt, &ticket.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования билета: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, nil
}

// MarkRedeemed помечает билет погашенным ровно один раз: условие NOT redeemed
// отклоняет повторное погашение при любом порядке конкурентных вызовов.
func (r *PostgresTicketRepository) MarkRedeemed(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE tickets SET redeemed = TRUE, redeemed_at = $2 WHERE id = $1 AND NOT redeemed`

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("ошибка погашения билета: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: билет %d уже погашен", models.ErrState, id)
	}

	r.logger.Info("билет погашен", zap.Int64("ticket_id", id))
	return nil
}
