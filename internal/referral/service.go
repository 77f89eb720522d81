package referral

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/config"
	"scena-market/pkg/models"
)

// maxBonusLevels — глубина реферальной цепочки, за которую платятся бонусы
const maxBonusLevels = 3

// AccountRepository интерфейс для работы с аккаунтами
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	SetReferrer(ctx context.Context, refereeID, referrerID int64) error
	IncrementReferralCount(ctx context.Context, id int64) error
	UpdateLastActive(ctx context.Context, id int64, at time.Time) error
}

// Repository интерфейс для работы с реферальными связями
type Repository interface {
	CreateReferral(ctx context.Context, referral *models.Referral) error
	GetReferrerOf(ctx context.Context, accountID int64) (*int64, error)
}

// Service представляет сервис реферального графа: привязку рефереров
// и расчет трехуровневых бонусов от покупок
type Service struct {
	accounts AccountRepository
	repo     Repository
	cfg      config.ReferralConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создает новый сервис реферального графа
func NewService(accounts AccountRepository, repo Repository, cfg config.ReferralConfig, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Bind привязывает реферера к покупателю. Привязка устанавливается не более
// одного раза; повторная подсказка, самопривязка и цикл глубиной до трех
// переходов молча игнорируются — покупка при этом продолжается.
// Вызывается внутри транзакции покупки.
func (s *Service) Bind(ctx context.Context, refereeID, referrerID int64) error {
	if refereeID == referrerID {
		return nil
	}

	referee, err := s.accounts.GetByID(ctx, refereeID)
	if err != nil {
		return err
	}
	if referee.ReferredBy != nil {
		return nil
	}
	if _, err := s.accounts.GetByID(ctx, referrerID); err != nil {
		if models.IsNotFound(err) {
			return nil
		}
		return err
	}

	// Проверка цикла: привязка отклоняется, если покупатель уже стоит
	// выше предполагаемого реферера в пределах оплачиваемой глубины.
	cursor := referrerID
	for level := 1; level <= maxBonusLevels; level++ {
		up, err := s.repo.GetReferrerOf(ctx, cursor)
		if err != nil {
			return err
		}
		if up == nil {
			break
		}
		if *up == refereeID {
			s.logger.Warn("привязка реферера отклонена: цикл в реферальном графе",
				zap.Int64("referee_id", refereeID),
				zap.Int64("referrer_id", referrerID),
				zap.Int("depth", level))
			return nil
		}
		cursor = *up
	}

	if err := s.accounts.SetReferrer(ctx, refereeID, referrerID); err != nil {
		// Конкурентная привязка: первая привязка побеждает, повторная не ошибка
		if models.IsState(err) {
			return nil
		}
		return err
	}
	if err := s.repo.CreateReferral(ctx, &models.Referral{
		ReferrerID: referrerID,
		RefereeID:  refereeID,
		CreatedAt:  s.now(),
	}); err != nil {
		return err
	}
	if err := s.accounts.IncrementReferralCount(ctx, referrerID); err != nil {
		return err
	}

	s.logger.Info("реферер привязан",
		zap.Int64("referee_id", refereeID),
		zap.Int64("referrer_id", referrerID))
	return nil
}

// TouchActive обновляет отметку активности покупателя. Активность
// учитывается при проверке окна выплат бонусов.
func (s *Service) TouchActive(ctx context.Context, accountID int64) error {
	return s.accounts.UpdateLastActive(ctx, accountID, s.now())
}

// ComputeBonuses рассчитывает реферальные выплаты с суммы покупки.
// Бонусный пул считается от суммы по общей ставке, затем для каждого из
// трех уровней ставка реферера умножается на его долю пула; каждое
// умножение округляется вниз. Неактивные рефереры пропускаются без
// перераспределения их доли.
func (s *Service) ComputeBonuses(ctx context.Context, buyerID int64, amount int64) ([]models.BonusPayout, error) {
	if amount <= 0 {
		return nil, nil
	}

	pool := amount * int64(s.cfg.BonusBps) / int64(models.BpsDenominator)
	if pool <= 0 {
		return nil, nil
	}

	payouts := make([]models.BonusPayout, 0, maxBonusLevels)
	cursor := buyerID
	for level := 1; level <= maxBonusLevels; level++ {
		up, err := s.repo.GetReferrerOf(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if up == nil {
			break
		}

		referrer, err := s.accounts.GetByID(ctx, *up)
		if err != nil {
			return nil, err
		}
		cursor = *up

		if s.cfg.OnlyActive && !s.isActive(referrer) {
			continue
		}

		rate := s.rateFor(referrer.ReferralCount)
		share := pool * int64(rate) / int64(models.BpsDenominator)
		bonus := share * int64(s.cfg.PoolSplit[level-1]) / int64(models.BpsDenominator)
		if bonus <= 0 {
			continue
		}
		payouts = append(payouts, models.BonusPayout{
			Level:     level,
			AccountID: referrer.ID,
			Amount:    bonus,
		})
	}

	if total := sumPayouts(payouts); total > pool {
		return nil, fmt.Errorf("%w: реферальные выплаты %d превышают пул %d", models.ErrInvariant, total, pool)
	}
	return payouts, nil
}

// rateFor возвращает ставку по ступенчатой таблице: наибольшая ступень,
// не превышающая число прямых рефералов; ниже первой ступени — ноль
func (s *Service) rateFor(referralCount int) models.BasisPoints {
	var rate models.BasisPoints
	for _, step := range s.cfg.Steps {
		if referralCount < step.MinReferrals {
			break
		}
		rate = step.Rate
	}
	return rate
}

// isActive проверяет активность реферера в пределах окна
func (s *Service) isActive(account *models.Account) bool {
	if account.LastActiveAt == nil {
		return false
	}
	return s.now().Sub(*account.LastActiveAt) <= s.cfg.ActivityWindow
}

func sumPayouts(payouts []models.BonusPayout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}
