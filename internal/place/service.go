package place

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/pkg/models"
)

// Repository интерфейс для работы с площадками
type Repository interface {
	Create(ctx context.Context, place *models.Place) error
	GetByID(ctx context.Context, id int64) (*models.Place, error)
	Update(ctx context.Context, place *models.Place) error
	List(ctx context.Context) ([]*models.Place, error)
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service представляет сервис реестра площадок
type Service struct {
	repo   Repository
	tx     Transactor
	trail  *audit.Trail
	logger *zap.Logger
	now    func() time.Time
}

// NewService создает новый сервис реестра площадок
func NewService(repo Repository, tx Transactor, trail *audit.Trail, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		trail:  trail,
		logger: logger,
		now:    time.Now,
	}
}

// Request создает заявку на площадку. Доступно любому аутентифицированному
// аккаунту; площадка создается в статусе Requested.
func (s *Service) Request(ctx context.Context, actor models.Identity, params models.PlaceParams) (*models.Place, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	place := &models.Place{
		RequesterID:      actor.AccountID,
		MaxTickets:       params.MaxTickets,
		MinTickets:       params.MinTickets,
		MinPrice:         params.MinPrice,
		MinDays:          params.MinDays,
		DaysBeforeCancel: params.DaysBeforeCancel,
		Available:        params.Available,
		Status:           models.PlaceStatusRequested,
		CreatedAt:        s.now(),
		UpdatedAt:        s.now(),
	}

	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, place); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "place.request",
			ActorID:   actor.AccountID,
			Entity:    "place",
			EntityID:  place.ID,
			Payload:   models.AuditPayload(params),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("создана заявка на площадку",
		zap.Int64("place_id", place.ID),
		zap.Int64("requester_id", actor.AccountID))
	return place, nil
}

// Approve утверждает площадку. Доступно только провайдеру; утверждающий
// провайдер закрепляется за площадкой и фиксирует размер залога.
func (s *Service) Approve(ctx context.Context, actor models.Identity, placeID int64, req *models.ApprovePlaceRequest) (*models.Place, error) {
	if !actor.IsProvider() {
		return nil, fmt.Errorf("%w: утверждение площадки доступно только провайдеру", models.ErrUnauthorized)
	}
	if req.DepositSize < 0 {
		return nil, fmt.Errorf("%w: размер залога не может быть отрицательным", models.ErrValidation)
	}

	var place *models.Place
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		place, err = s.repo.GetByID(ctx, placeID)
		if err != nil {
			return err
		}
		if place.Status != models.PlaceStatusRequested {
			return fmt.Errorf("%w: площадка %d в статусе %s, утверждение невозможно", models.ErrState, placeID, place.Status)
		}

		place.ProviderID = &actor.AccountID
		place.DepositSize = req.DepositSize
		place.Status = models.PlaceStatusApproved
		place.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, place); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "place.approve",
			ActorID:   actor.AccountID,
			Entity:    "place",
			EntityID:  placeID,
			Payload:   models.AuditPayload(req),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("площадка утверждена",
		zap.Int64("place_id", placeID),
		zap.Int64("provider_id", actor.AccountID),
		zap.Int64("deposit_size", req.DepositSize))
	return place, nil
}

// Update изменяет параметры площадки с повторной проверкой инвариантов.
// Доступно закрепленному провайдеру; до утверждения — любому провайдеру.
func (s *Service) Update(ctx context.Context, actor models.Identity, placeID int64, params models.PlaceParams) (*models.Place, error) {
	if !actor.IsProvider() {
		return nil, fmt.Errorf("%w: изменение площадки доступно только провайдеру", models.ErrUnauthorized)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var place *models.Place
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		place, err = s.repo.GetByID(ctx, placeID)
		if err != nil {
			return err
		}
		if place.ProviderID != nil && *place.ProviderID != actor.AccountID {
			return fmt.Errorf("%w: площадка %d закреплена за другим провайдером", models.ErrUnauthorized, placeID)
		}

		place.MaxTickets = params.MaxTickets
		place.MinTickets = params.MinTickets
		place.MinPrice = params.MinPrice
		place.MinDays = params.MinDays
		place.DaysBeforeCancel = params.DaysBeforeCancel
		place.Available = params.Available
		place.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, place); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "place.update",
			ActorID:   actor.AccountID,
			Entity:    "place",
			EntityID:  placeID,
			Payload:   models.AuditPayload(params),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	return place, nil
}

// Decline отклоняет заявку на площадку. Статус терминальный.
func (s *Service) Decline(ctx context.Context, actor models.Identity, placeID int64) (*models.Place, error) {
	if !actor.IsProvider() {
		return nil, fmt.Errorf("%w: отклонение площадки доступно только провайдеру", models.ErrUnauthorized)
	}

	var place *models.Place
	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		place, err = s.repo.GetByID(ctx, placeID)
		if err != nil {
			return err
		}
		if place.Status != models.PlaceStatusRequested {
			return fmt.Errorf("%w: площадка %d в статусе %s, отклонение невозможно", models.ErrState, placeID, place.Status)
		}

		place.Status = models.PlaceStatusDeclined
		place.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, place); err != nil {
			return err
		}

		record = &models.AuditRecord{
			Operation: "place.decline",
			ActorID:   actor.AccountID,
			Entity:    "place",
			EntityID:  placeID,
			Payload:   models.AuditPayload(nil),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("площадка отклонена", zap.Int64("place_id", placeID))
	return place, nil
}

// Get возвращает площадку по идентификатору
func (s *Service) Get(ctx context.Context, id int64) (*models.Place, error) {
	return s.repo.GetByID(ctx, id)
}

// List возвращает все площадки
func (s *Service) List(ctx context.Context) ([]*models.Place, error) {
	return s.repo.List(ctx)
}
