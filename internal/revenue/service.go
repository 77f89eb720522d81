package revenue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/internal/config"
	"scena-market/internal/share"
	"scena-market/pkg/models"
)

// Repository интерфейс для работы с профилями распределения
type Repository interface {
	Create(ctx context.Context, profile *models.DistributionProfile) error
	GetByID(ctx context.Context, id int64) (*models.DistributionProfile, error)
	UpdateShares(ctx context.Context, profileID int64, shares []models.ProfileShare) error
	SetDefault(ctx context.Context, profileID int64) error
	SetForEvent(ctx context.Context, profileID, eventID int64) error
	GetDefault(ctx context.Context) (*models.DistributionProfile, error)
	GetForEvent(ctx context.Context, eventID int64) (*models.DistributionProfile, error)
}

// Ledger интерфейс движения средств внутри транзакции операции
type Ledger interface {
	ReleaseFromEvent(ctx context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service представляет сервис распределения выручки по профилям
type Service struct {
	repo   Repository
	ledger Ledger
	tx     Transactor
	trail  *audit.Trail
	cfg    config.MarketConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService создает новый сервис распределения выручки
func NewService(repo Repository, ledger Ledger, tx Transactor, trail *audit.Trail, cfg config.MarketConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		tx:     tx,
		trail:  trail,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Distribute распределяет накопленные средства события из эскроу.
// Сначала снимаются два фиксированных платформенных отчисления, каждое
// от полной суммы, затем остаток делится по профилю события (если
// задан) или по профилю по умолчанию; пыль достается сборному счету
// платформы. Отсутствие обоих профилей — ошибка, молчаливого нулевого
// распределения нет. Вызывается внутри транзакции закрытия события.
func (s *Service) Distribute(ctx context.Context, eventID int64, amount int64) ([]models.Payout, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: отрицательная сумма распределения", models.ErrInvariant)
	}
	if amount == 0 {
		return nil, nil
	}

	profile, err := s.selectProfile(ctx, eventID)
	if err != nil {
		return nil, err
	}

	cutA, _, err := share.Split(amount, s.cfg.PlatformCutA)
	if err != nil {
		return nil, err
	}
	cutB, _, err := share.Split(amount, s.cfg.PlatformCutB)
	if err != nil {
		return nil, err
	}
	// Сумма отчислений не превышает 100%, проверено конфигурацией
	flexible := amount - cutA - cutB
	if err := s.ledger.ReleaseFromEvent(ctx, models.EntryPlatformCut, s.cfg.MasterAccountID, eventID, cutA); err != nil {
		return nil, err
	}
	if err := s.ledger.ReleaseFromEvent(ctx, models.EntryPlatformCut, s.cfg.ReserveAccountID, eventID, cutB); err != nil {
		return nil, err
	}

	payouts, err := share.SplitAcrossProfile(flexible, profile, s.cfg.MasterAccountID)
	if err != nil {
		return nil, err
	}
	if got := share.Sum(payouts); got != flexible {
		return nil, fmt.Errorf("%w: распределено %d из %d", models.ErrInvariant, got, flexible)
	}
	for _, payout := range payouts {
		if err := s.ledger.ReleaseFromEvent(ctx, models.EntryRevenueShare, payout.AccountID, eventID, payout.Amount); err != nil {
			return nil, err
		}
	}

	s.logger.Info("выручка события распределена",
		zap.Int64("event_id", eventID),
		zap.Int64("amount", amount),
		zap.Int64("platform_cut", cutA+cutB),
		zap.Int64("profile_id", profile.ID))
	return payouts, nil
}

// selectProfile выбирает профиль распределения: переопределение события,
// иначе профиль по умолчанию
func (s *Service) selectProfile(ctx context.Context, eventID int64) (*models.DistributionProfile, error) {
	profile, err := s.repo.GetForEvent(ctx, eventID)
	if err == nil {
		return profile, nil
	}
	if !models.IsNotFound(err) {
		return nil, err
	}
	profile, err = s.repo.GetDefault(ctx)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, fmt.Errorf("%w: для события %d нет ни профиля события, ни профиля по умолчанию", models.ErrState, eventID)
		}
		return nil, err
	}
	return profile, nil
}

// CreateProfile создает профиль распределения. Только администратор.
func (s *Service) CreateProfile(ctx context.Context, actor models.Identity, req *models.CreateProfileRequest) (*models.DistributionProfile, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: управление профилями доступно только администратору", models.ErrUnauthorized)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: имя профиля не задано", models.ErrValidation)
	}
	shares, err := buildShares(req.Recipients, req.Shares)
	if err != nil {
		return nil, err
	}

	profile := &models.DistributionProfile{
		Name:      req.Name,
		Shares:    shares,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	var record *models.AuditRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, profile); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "revenue.create_profile",
			ActorID:   actor.AccountID,
			Entity:    "profile",
			EntityID:  profile.ID,
			Payload:   models.AuditPayload(req),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("создан профиль распределения",
		zap.Int64("profile_id", profile.ID),
		zap.Int("recipients", len(shares)))
	return profile, nil
}

// UpdateProfile заменяет доли профиля с повторной проверкой инвариантов.
// Только администратор.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Identity, profileID int64, req *models.UpdateProfileRequest) (*models.DistributionProfile, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: управление профилями доступно только администратору", models.ErrUnauthorized)
	}
	shares, err := buildShares(req.Recipients, req.Shares)
	if err != nil {
		return nil, err
	}

	var profile *models.DistributionProfile
	var record *models.AuditRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.repo.GetByID(ctx, profileID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateShares(ctx, profileID, shares); err != nil {
			return err
		}
		profile.Shares = shares

		record = &models.AuditRecord{
			Operation: "revenue.update_profile",
			ActorID:   actor.AccountID,
			Entity:    "profile",
			EntityID:  profileID,
			Payload:   models.AuditPayload(req),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	return profile, nil
}

// SetDefaultProfile назначает профиль профилем по умолчанию.
// Только администратор; прежний профиль по умолчанию сбрасывается.
func (s *Service) SetDefaultProfile(ctx context.Context, actor models.Identity, profileID int64) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: управление профилями доступно только администратору", models.ErrUnauthorized)
	}

	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, profileID); err != nil {
			return err
		}
		if err := s.repo.SetDefault(ctx, profileID); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "revenue.set_default_profile",
			ActorID:   actor.AccountID,
			Entity:    "profile",
			EntityID:  profileID,
			Payload:   models.AuditPayload(nil),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("назначен профиль по умолчанию", zap.Int64("profile_id", profileID))
	return nil
}

// SetEventProfile привязывает профиль к событию как переопределение.
// Только администратор; у события не более одного переопределения.
func (s *Service) SetEventProfile(ctx context.Context, actor models.Identity, profileID int64, req *models.SetEventProfileRequest) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: управление профилями доступно только администратору", models.ErrUnauthorized)
	}

	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, profileID); err != nil {
			return err
		}
		if err := s.repo.SetForEvent(ctx, profileID, req.EventID); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "revenue.set_event_profile",
			ActorID:   actor.AccountID,
			Entity:    "profile",
			EntityID:  profileID,
			Payload:   models.AuditPayload(req),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return err
	}

	s.trail.Forward(ctx, record)
	return nil
}

// GetProfile возвращает профиль по идентификатору
func (s *Service) GetProfile(ctx context.Context, id int64) (*models.DistributionProfile, error) {
	return s.repo.GetByID(ctx, id)
}

// buildShares собирает доли из параллельных списков получателей и долей
// и проверяет инварианты профиля
func buildShares(recipients []int64, shares []int) ([]models.ProfileShare, error) {
	if len(recipients) != len(shares) {
		return nil, fmt.Errorf("%w: число получателей (%d) не совпадает с числом долей (%d)", models.ErrValidation, len(recipients), len(shares))
	}
	out := make([]models.ProfileShare, 0, len(recipients))
	for i, recipient := range recipients {
		bps, err := models.NewBasisPoints(shares[i])
		if err != nil {
			return nil, err
		}
		out = append(out, models.ProfileShare{RecipientID: recipient, Share: bps})
	}
	if err := models.ValidateShares(out); err != nil {
		return nil, err
	}
	return out, nil
}
