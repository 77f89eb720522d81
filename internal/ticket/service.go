package ticket

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/pkg/models"
)

// Repository интерфейс для работы с категориями и билетами
type Repository interface {
	CreateCategory(ctx context.Context, category *models.TicketCategory) error
	GetCategory(ctx context.Context, id int64) (*models.TicketCategory, error)
	ListCategories(ctx context.Context, eventID int64) ([]*models.TicketCategory, error)
	ReserveQuota(ctx context.Context, categoryID int64, quantity int) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	MarkRedeemed(ctx context.Context, id int64, at time.Time) error
}

// EventRepository интерфейс для чтения событий и накопления средств
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	AddNetWorth(ctx context.Context, id int64, delta int64) error
}

// Ledger интерфейс движения средств внутри транзакции операции
type Ledger interface {
	HoldForEvent(ctx context.Context, entryType models.LedgerEntryType, from int64, eventID int64, amount int64) error
	ReleaseFromEvent(ctx context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error
}

// Referrals интерфейс реферальной обработки покупки
type Referrals interface {
	Bind(ctx context.Context, refereeID, referrerID int64) error
	TouchActive(ctx context.Context, accountID int64) error
	ComputeBonuses(ctx context.Context, buyerID int64, amount int64) ([]models.BonusPayout, error)
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service представляет сервис категорий и билетов
type Service struct {
	repo      Repository
	events    EventRepository
	ledger    Ledger
	referrals Referrals
	tx        Transactor
	trail     *audit.Trail
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создает новый сервис билетов
func NewService(repo Repository, events EventRepository, ledger Ledger, referrals Referrals, tx Transactor, trail *audit.Trail, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		events:    events,
		ledger:    ledger,
		referrals: referrals,
		tx:        tx,
		trail:     trail,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateCategory создает категорию билетов. Категории создаются только
// пока событие в статусе Submitted, до начала продаж.
func (s *Service) CreateCategory(ctx context.Context, actor models.Identity, eventID int64, req *models.CreateCategoryRequest) (*models.TicketCategory, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: имя категории не задано", models.ErrValidation)
	}
	discount, err := models.NewBasisPoints(req.DiscountBps)
	if err != nil {
		return nil, err
	}
	if req.HasQuota && req.Quota <= 0 {
		return nil, fmt.Errorf("%w: квота ограниченной категории должна быть больше нуля", models.ErrValidation)
	}
	quota := 0
	if req.HasQuota {
		quota = req.Quota
	}

	var category *models.TicketCategory
	var record *models.AuditRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatorID != actor.AccountID && !actor.IsAdmin() {
			return fmt.Errorf("%w: категории создает организатор события", models.ErrUnauthorized)
		}
		if event.Status != models.EventStatusSubmitted {
			return fmt.Errorf("%w: событие %d в статусе %s, категории создаются до утверждения", models.ErrState, eventID, event.Status)
		}

		category = &models.TicketCategory{
			EventID:     eventID,
			Name:        req.Name,
			DiscountBps: discount,
			Quota:       quota,
			CreatedAt:   s.now(),
		}
		if err := s.repo.CreateCategory(ctx, category); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "ticket.create_category",
			ActorID:   actor.AccountID,
			Entity:    "ticket_category",
			EntityID:  category.ID,
			Payload:   models.AuditPayload(req),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	return category, nil
}

// Mint продает билеты покупателю. Квота резервируется внутри транзакции,
// чтобы конкурентные покупки не прошли проверку одновременно. Средства
// покупателя поступают в эскроу события; реферальные бонусы выплачиваются
// из них, остаток накапливается к распределению при закрытии.
func (s *Service) Mint(ctx context.Context, actor models.Identity, eventID int64, req *models.MintTicketsRequest) ([]*models.Ticket, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: количество билетов должно быть больше нуля", models.ErrValidation)
	}

	now := s.now()
	var tickets []*models.Ticket
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.EventStatusApproved {
			return fmt.Errorf("%w: событие %d в статусе %s, продажа недоступна", models.ErrState, eventID, event.Status)
		}
		category, err := s.repo.GetCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if category.EventID != eventID {
			return fmt.Errorf("%w: категория %d не принадлежит событию %d", models.ErrValidation, req.CategoryID, eventID)
		}
		if err := s.repo.ReserveQuota(ctx, req.CategoryID, req.Quantity); err != nil {
			return err
		}

		price := category.TicketPrice(event.Price)
		total := price * int64(req.Quantity)
		if err := s.ledger.HoldForEvent(ctx, models.EntryTicketSale, actor.AccountID, eventID, total); err != nil {
			return err
		}

		// Реферальная обработка до зачисления остатка в накопления события
		if req.ReferrerHint != nil {
			if err := s.referrals.Bind(ctx, actor.AccountID, *req.ReferrerHint); err != nil {
				return err
			}
		}
		if err := s.referrals.TouchActive(ctx, actor.AccountID); err != nil {
			return err
		}
		payouts, err := s.referrals.ComputeBonuses(ctx, actor.AccountID, total)
		if err != nil {
			return err
		}
		var bonusTotal int64
		for _, payout := range payouts {
			if err := s.ledger.ReleaseFromEvent(ctx, models.EntryReferralBonus, payout.AccountID, eventID, payout.Amount); err != nil {
				return err
			}
			bonusTotal += payout.Amount
		}
		if err := s.events.AddNetWorth(ctx, eventID, total-bonusTotal); err != nil {
			return err
		}

		tickets = make([]*models.Ticket, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			ticket := &models.Ticket{
				EventID:    eventID,
				CategoryID: req.CategoryID,
				OwnerID:    actor.AccountID,
				Price:      price,
				CreatedAt:  now,
			}
			if err := s.repo.CreateTicket(ctx, ticket); err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}

		record = &models.AuditRecord{
			Operation: "ticket.mint",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  eventID,
			Payload:   models.AuditPayload(req),
			CreatedAt: now,
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("билеты проданы",
		zap.Int64("event_id", eventID),
		zap.Int64("buyer_id", actor.AccountID),
		zap.Int("quantity", req.Quantity))
	return tickets, nil
}

// Redeem погашает билет. Доступно только персоналу; повторное погашение
// отклоняется, в том числе при конкурентной подаче.
func (s *Service) Redeem(ctx context.Context, actor models.Identity, ticketID int64) (*models.Ticket, error) {
	if !actor.IsStaff() && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: погашение билетов доступно только персоналу", models.ErrUnauthorized)
	}

	now := s.now()
	var ticket *models.Ticket
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.repo.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := s.repo.MarkRedeemed(ctx, ticketID, now); err != nil {
			return err
		}
		ticket.Redeemed = true
		ticket.RedeemedAt = &now

		record = &models.AuditRecord{
			Operation: "ticket.redeem",
			ActorID:   actor.AccountID,
			Entity:    "ticket",
			EntityID:  ticketID,
			Payload:   models.AuditPayload(nil),
			CreatedAt: now,
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("билет погашен", zap.Int64("ticket_id", ticketID))
	return ticket, nil
}

// ListCategories возвращает категории события
func (s *Service) ListCategories(ctx context.Context, eventID int64) ([]*models.TicketCategory, error) {
	return s.repo.ListCategories(ctx, eventID)
}

// GetTicket возвращает билет по идентификатору
func (s *Service) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.repo.GetTicket(ctx, id)
}
