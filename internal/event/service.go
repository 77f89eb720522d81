package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/internal/config"
	"scena-market/pkg/models"
)

// Repository интерфейс для работы с событиями
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error
	AddNetWorth(ctx context.Context, id int64, delta int64) error
	ListActiveAtPlace(ctx context.Context, placeID int64) ([]*models.Event, error)
}

// PlaceRepository интерфейс для чтения площадок
type PlaceRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Place, error)
}

// TicketRepository интерфейс для чтения билетов события
type TicketRepository interface {
	ListTicketsByEvent(ctx context.Context, eventID int64) ([]*models.Ticket, error)
}

// Ledger интерфейс движения средств внутри транзакции операции
type Ledger interface {
	Move(ctx context.Context, entryType models.LedgerEntryType, from, to *int64, eventID *int64, amount int64) error
	HoldForEvent(ctx context.Context, entryType models.LedgerEntryType, from int64, eventID int64, amount int64) error
	ReleaseFromEvent(ctx context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error
}

// LedgerReader интерфейс чтения проводок события
type LedgerReader interface {
	ListEntriesByEvent(ctx context.Context, eventID int64) ([]*models.LedgerEntry, error)
}

// Distributor распределяет накопленные средства события при закрытии
type Distributor interface {
	Distribute(ctx context.Context, eventID int64, amount int64) ([]models.Payout, error)
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service представляет сервис жизненного цикла событий:
// Submitted -> {Approved, Declined}; Approved -> {Cancelled, Closed}
type Service struct {
	repo        Repository
	places      PlaceRepository
	tickets     TicketRepository
	ledger      Ledger
	entries     LedgerReader
	distributor Distributor
	tx          Transactor
	trail       *audit.Trail
	cfg         config.MarketConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewService создает новый сервис жизненного цикла событий
func NewService(repo Repository, places PlaceRepository, tickets TicketRepository, ledger Ledger, entries LedgerReader, distributor Distributor, tx Transactor, trail *audit.Trail, cfg config.MarketConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		places:      places,
		tickets:     tickets,
		ledger:      ledger,
		entries:     entries,
		distributor: distributor,
		tx:          tx,
		trail:       trail,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit подает событие на площадку. Проверяет параметры против площадки и
// пересечение дат с другими активными событиями; при успехе эскроуирует
// взнос за подачу и залог площадки с баланса организатора.
func (s *Service) Submit(ctx context.Context, actor models.Identity, req *models.SubmitEventRequest) (*models.Event, error) {
	if req.Days <= 0 {
		return nil, fmt.Errorf("%w: длительность события должна быть больше нуля", models.ErrValidation)
	}

	now := s.now()
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		place, err := s.places.GetByID(ctx, req.PlaceID)
		if err != nil {
			return err
		}
		if place.Status != models.PlaceStatusApproved {
			return fmt.Errorf("%w: площадка %d не утверждена", models.ErrState, req.PlaceID)
		}
		if !place.Available {
			return fmt.Errorf("%w: площадка %d недоступна", models.ErrState, req.PlaceID)
		}
		if req.Price < place.MinPrice {
			return fmt.Errorf("%w: цена %d ниже минимальной цены площадки %d", models.ErrValidation, req.Price, place.MinPrice)
		}
		if req.Days < place.MinDays {
			return fmt.Errorf("%w: длительность %d меньше минимальной длительности площадки %d", models.ErrValidation, req.Days, place.MinDays)
		}
		if err := s.checkDateWindow(req.StartDate, place, now); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, req.PlaceID, req.StartDate, req.Days, 0); err != nil {
			return err
		}

		event = &models.Event{
			PlaceID:    req.PlaceID,
			CreatorID:  actor.AccountID,
			Price:      req.Price,
			StartDate:  req.StartDate,
			Days:       req.Days,
			Status:     models.EventStatusSubmitted,
			ContentRef: req.ContentRef,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, event); err != nil {
			return err
		}

		// Эскроу взноса и залога с баланса организатора
		if err := s.ledger.HoldForEvent(ctx, models.EntrySubmissionFeeHold, actor.AccountID, event.ID, s.cfg.SubmissionFee); err != nil {
			return err
		}
		if err := s.ledger.HoldForEvent(ctx, models.EntryDepositHold, actor.AccountID, event.ID, place.DepositSize); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "event.submit",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  event.ID,
			Payload:   models.AuditPayload(req),
			CreatedAt: now,
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("событие подано",
		zap.Int64("event_id", event.ID),
		zap.Int64("place_id", req.PlaceID),
		zap.Int64("creator_id", actor.AccountID))
	return event, nil
}

// Approve утверждает поданное событие. Доступно провайдеру площадки.
func (s *Service) Approve(ctx context.Context, actor models.Identity, eventID int64) (*models.Event, error) {
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.loadForProvider(ctx, actor, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.EventStatusSubmitted {
			return fmt.Errorf("%w: событие %d в статусе %s, утверждение невозможно", models.ErrState, eventID, event.Status)
		}
		if err := s.repo.UpdateStatus(ctx, eventID, models.EventStatusApproved); err != nil {
			return err
		}
		event.Status = models.EventStatusApproved

		record = &models.AuditRecord{
			Operation: "event.approve",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  eventID,
			Payload:   models.AuditPayload(nil),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("событие утверждено", zap.Int64("event_id", eventID))
	return event, nil
}

// Decline отклоняет поданное событие и возвращает организатору
// эскроуированные взнос и залог. Статус терминальный.
func (s *Service) Decline(ctx context.Context, actor models.Identity, eventID int64) (*models.Event, error) {
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.loadForProvider(ctx, actor, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.EventStatusSubmitted {
			return fmt.Errorf("%w: событие %d в статусе %s, отклонение невозможно", models.ErrState, eventID, event.Status)
		}

		fee, deposit, err := s.heldAmounts(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntrySubmissionFeeBack, event.CreatorID, eventID, fee); err != nil {
			return err
		}
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntryDepositBack, event.CreatorID, eventID, deposit); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, eventID, models.EventStatusDeclined); err != nil {
			return err
		}
		event.Status = models.EventStatusDeclined

		record = &models.AuditRecord{
			Operation: "event.decline",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  eventID,
			Payload:   models.AuditPayload(nil),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("событие отклонено", zap.Int64("event_id", eventID))
	return event, nil
}

// Update изменяет параметры события с повторной проверкой всех инвариантов
// подачи; собственный диапазон события исключается из проверки пересечений.
// Доступно организатору, пока событие не достигло терминального статуса.
func (s *Service) Update(ctx context.Context, actor models.Identity, eventID int64, req *models.UpdateEventRequest) (*models.Event, error) {
	if req.Days <= 0 {
		return nil, fmt.Errorf("%w: длительность события должна быть больше нуля", models.ErrValidation)
	}

	now := s.now()
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatorID != actor.AccountID && !actor.IsAdmin() {
			return fmt.Errorf("%w: изменять событие может только его организатор", models.ErrUnauthorized)
		}
		if event.Status.IsTerminal() {
			return fmt.Errorf("%w: событие %d в терминальном статусе %s", models.ErrState, eventID, event.Status)
		}

		place, err := s.places.GetByID(ctx, event.PlaceID)
		if err != nil {
			return err
		}
		if req.Price < place.MinPrice {
			return fmt.Errorf("%w: цена %d ниже минимальной цены площадки %d", models.ErrValidation, req.Price, place.MinPrice)
		}
		if req.Days < place.MinDays {
			return fmt.Errorf("%w: длительность %d меньше минимальной длительности площадки %d", models.ErrValidation, req.Days, place.MinDays)
		}
		if err := s.checkDateWindow(req.StartDate, place, now); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, event.PlaceID, req.StartDate, req.Days, eventID); err != nil {
			return err
		}

		event.Price = req.Price
		event.StartDate = req.StartDate
		event.Days = req.Days
		event.ContentRef = req.ContentRef
		event.UpdatedAt = now
		if err := s.repo.Update(ctx, event); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "event.update",
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
	return event, nil
}

// Cancel отменяет утвержденное событие: каждому покупателю возвращается
// уплаченная цена билета, залог переходит провайдеру площадки как
// компенсация, взнос удерживается платформой. Отмена применяется целиком:
// сбой любого возврата откатывает всю операцию.
func (s *Service) Cancel(ctx context.Context, actor models.Identity, eventID int64) (*models.Event, error) {
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		place, err := s.places.GetByID(ctx, event.PlaceID)
		if err != nil {
			return err
		}
		if !s.canManage(actor, event, place) {
			return fmt.Errorf("%w: отмена доступна организатору или провайдеру площадки", models.ErrUnauthorized)
		}
		if event.Status != models.EventStatusApproved {
			return fmt.Errorf("%w: событие %d в статусе %s, отмена невозможна", models.ErrState, eventID, event.Status)
		}

		// Полный возврат каждому покупателю
		tickets, err := s.tickets.ListTicketsByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		for _, ticket := range tickets {
			if err := s.ledger.ReleaseFromEvent(ctx, models.EntryTicketRefund, ticket.OwnerID, eventID, ticket.Price); err != nil {
				return fmt.Errorf("возврат за билет %d: %w", ticket.ID, err)
			}
		}

		fee, deposit, err := s.heldAmounts(ctx, eventID)
		if err != nil {
			return err
		}
		if place.ProviderID != nil {
			if err := s.ledger.ReleaseFromEvent(ctx, models.EntryDepositSeize, *place.ProviderID, eventID, deposit); err != nil {
				return err
			}
		}
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntrySubmissionFeeTake, s.cfg.MasterAccountID, eventID, fee); err != nil {
			return err
		}

		if event.NetWorth != 0 {
			if err := s.repo.AddNetWorth(ctx, eventID, -event.NetWorth); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, eventID, models.EventStatusCancelled); err != nil {
			return err
		}
		event.Status = models.EventStatusCancelled
		event.NetWorth = 0

		record = &models.AuditRecord{
			Operation: "event.cancel",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  eventID,
			Payload:   models.AuditPayload(map[string]int{"refunded_tickets": len(tickets)}),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("событие отменено", zap.Int64("event_id", eventID))
	return event, nil
}

// Close закрывает утвержденное событие после его окончания: накопленные
// средства распределяются по профилю, залог возвращается организатору,
// взнос удерживается платформой. Статус терминальный.
func (s *Service) Close(ctx context.Context, actor models.Identity, eventID int64) (*models.Event, error) {
	now := s.now()
	var event *models.Event
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.repo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		place, err := s.places.GetByID(ctx, event.PlaceID)
		if err != nil {
			return err
		}
		if !s.canManage(actor, event, place) {
			return fmt.Errorf("%w: закрытие доступно организатору или провайдеру площадки", models.ErrUnauthorized)
		}
		if event.Status != models.EventStatusApproved {
			return fmt.Errorf("%w: событие %d в статусе %s, закрытие невозможно", models.ErrState, eventID, event.Status)
		}
		if now.Before(event.EndDate()) {
			return fmt.Errorf("%w: событие %d еще не закончилось", models.ErrState, eventID)
		}

		payouts, err := s.distributor.Distribute(ctx, eventID, event.NetWorth)
		if err != nil {
			return err
		}
		if event.NetWorth != 0 {
			if err := s.repo.AddNetWorth(ctx, eventID, -event.NetWorth); err != nil {
				return err
			}
		}

		fee, deposit, err := s.heldAmounts(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntryDepositBack, event.CreatorID, eventID, deposit); err != nil {
			return err
		}
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntrySubmissionFeeTake, s.cfg.MasterAccountID, eventID, fee); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, eventID, models.EventStatusClosed); err != nil {
			return err
		}
		event.Status = models.EventStatusClosed
		event.NetWorth = 0

		record = &models.AuditRecord{
			Operation: "event.close",
			ActorID:   actor.AccountID,
			Entity:    "event",
			EntityID:  eventID,
			Payload:   models.AuditPayload(payouts),
			CreatedAt: now,
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("событие закрыто", zap.Int64("event_id", eventID))
	return event, nil
}

// Get возвращает событие по идентификатору
func (s *Service) Get(ctx context.Context, id int64) (*models.Event, error) {
	return s.repo.GetByID(ctx, id)
}

// checkDateWindow проверяет окно дат подачи: начало не раньше, чем через
// окно уведомления площадки, и не дальше максимального горизонта
func (s *Service) checkDateWindow(startDate time.Time, place *models.Place, now time.Time) error {
	earliest := now.AddDate(0, 0, place.DaysBeforeCancel)
	if startDate.Before(earliest) {
		return fmt.Errorf("%w: начало события раньше окна уведомления площадки (%d дней)", models.ErrValidation, place.DaysBeforeCancel)
	}
	latest := now.AddDate(0, 0, s.cfg.MaxAdvanceDays)
	if startDate.After(latest) {
		return fmt.Errorf("%w: начало события дальше максимального горизонта (%d дней)", models.ErrValidation, s.cfg.MaxAdvanceDays)
	}
	return nil
}

// checkOverlap проверяет пересечение диапазона с активными событиями
// площадки; excludeID исключает собственный диапазон при изменении
func (s *Service) checkOverlap(ctx context.Context, placeID int64, startDate time.Time, days int, excludeID int64) error {
	active, err := s.repo.ListActiveAtPlace(ctx, placeID)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID == excludeID {
			continue
		}
		if models.RangesOverlap(startDate, days, other.StartDate, other.Days) {
			return fmt.Errorf("%w: диапазон дат пересекается с событием %d", models.ErrValidation, other.ID)
		}
	}
	return nil
}

// heldAmounts вычисляет удерживаемые в эскроу взнос и залог по журналу
// проводок события. Журнал — источник истины: размер залога площадки мог
// измениться после подачи.
func (s *Service) heldAmounts(ctx context.Context, eventID int64) (fee, deposit int64, err error) {
	entries, err := s.entries.ListEntriesByEvent(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		switch e.Type {
		case models.EntrySubmissionFeeHold:
			fee += e.Amount
		case models.EntrySubmissionFeeBack, models.EntrySubmissionFeeTake:
			fee -= e.Amount
		case models.EntryDepositHold:
			deposit += e.Amount
		case models.EntryDepositBack, models.EntryDepositSeize:
			deposit -= e.Amount
		}
	}
	return fee, deposit, nil
}

// canManage проверяет право управлять событием: организатор, провайдер
// площадки или администратор
func (s *Service) canManage(actor models.Identity, event *models.Event, place *models.Place) bool {
	if actor.IsAdmin() || event.CreatorID == actor.AccountID {
		return true
	}
	return place.ProviderID != nil && *place.ProviderID == actor.AccountID
}

// loadForProvider загружает событие и проверяет, что вызывающий —
// провайдер его площадки
func (s *Service) loadForProvider(ctx context.Context, actor models.Identity, eventID int64) (*models.Event, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	place, err := s.places.GetByID(ctx, event.PlaceID)
	if err != nil {
		return nil, err
	}
	if place.ProviderID == nil || *place.ProviderID != actor.AccountID {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: операция доступна провайдеру площадки события", models.ErrUnauthorized)
		}
	}
	return event, nil
}
