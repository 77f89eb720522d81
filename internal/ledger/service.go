package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scena-market/internal/audit"
	"scena-market/internal/metrics"
	"scena-market/pkg/models"
)

// Repository интерфейс для работы с журналом проводок и балансами
type Repository interface {
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	AddBalance(ctx context.Context, accountID int64, delta int64) error
	ListEntriesByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error)
	ListEntriesByEvent(ctx context.Context, eventID int64) ([]*models.LedgerEntry, error)
}

// AccountRepository интерфейс для работы с аккаунтами
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service представляет сервис учета движения средств. Каждое движение —
// неизменяемая проводка журнала плюс согласованное изменение балансов;
// баланс аккаунта никогда не уходит в минус.
type Service struct {
	repo     Repository
	accounts AccountRepository
	tx       Transactor
	trail    *audit.Trail
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создает новый сервис учета
func NewService(repo Repository, accounts AccountRepository, tx Transactor, trail *audit.Trail, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		tx:       tx,
		trail:    trail,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Deposit пополняет баланс аккаунта. Доступно только администратору:
// пополнение отражает поступление средств извне системы.
func (s *Service) Deposit(ctx context.Context, actor models.Identity, req *models.DepositRequest) (*models.LedgerEntry, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: пополнение доступно только администратору", models.ErrUnauthorized)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: сумма пополнения должна быть положительной", models.ErrValidation)
	}

	entry := &models.LedgerEntry{
		Type:        models.EntryDeposit,
		ToAccountID: &req.AccountID,
		Amount:      req.Amount,
		CreatedAt:   s.now(),
	}
	record := &models.AuditRecord{
		Operation: "ledger.deposit",
		ActorID:   actor.AccountID,
		Entity:    "account",
		EntityID:  req.AccountID,
		Payload:   models.AuditPayload(req),
		CreatedAt: s.now(),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.GetByID(ctx, req.AccountID); err != nil {
			return err
		}
		if err := s.repo.AddBalance(ctx, req.AccountID, req.Amount); err != nil {
			return err
		}
		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return err
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.metrics.RecordFundsMoved(string(models.EntryDeposit), req.Amount)
	s.logger.Info("баланс пополнен",
		zap.Int64("account_id", req.AccountID),
		zap.Int64("amount", req.Amount))
	return entry, nil
}

// Withdraw выводит средства с баланса аккаунта. Доступно владельцу
// аккаунта или администратору; при нехватке средств операция отклоняется.
func (s *Service) Withdraw(ctx context.Context, actor models.Identity, accountID int64, amount int64) (*models.LedgerEntry, error) {
	if actor.AccountID != accountID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: вывод доступен только владельцу аккаунта", models.ErrUnauthorized)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: сумма вывода должна быть положительной", models.ErrValidation)
	}

	entry := &models.LedgerEntry{
		Type:          models.EntryWithdrawal,
		FromAccountID: &accountID,
		Amount:        amount,
		CreatedAt:     s.now(),
	}
	record := &models.AuditRecord{
		Operation: "ledger.withdraw",
		ActorID:   actor.AccountID,
		Entity:    "account",
		EntityID:  accountID,
		Payload:   models.AuditPayload(map[string]int64{"account_id": accountID, "amount": amount}),
		CreatedAt: s.now(),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddBalance(ctx, accountID, -amount); err != nil {
			return err
		}
		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return err
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.metrics.RecordFundsMoved(string(models.EntryWithdrawal), amount)
	return entry, nil
}

// Move выполняет одиночное движение средств внутри уже открытой транзакции:
// списание с from (если указан), зачисление на to (если указан) и проводка
// журнала. Нулевые суммы пропускаются без проводки.
func (s *Service) Move(ctx context.Context, entryType models.LedgerEntryType, from, to *int64, eventID *int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: отрицательная сумма проводки %s", models.ErrInvariant, entryType)
	}
	if amount == 0 {
		return nil
	}
	if from != nil {
		if err := s.repo.AddBalance(ctx, *from, -amount); err != nil {
			return fmt.Errorf("списание по проводке %s: %w", entryType, err)
		}
	}
	if to != nil {
		if err := s.repo.AddBalance(ctx, *to, amount); err != nil {
			return fmt.Errorf("зачисление по проводке %s: %w", entryType, err)
		}
	}
	entry := &models.LedgerEntry{
		Type:          entryType,
		FromAccountID: from,
		ToAccountID:   to,
		EventID:       eventID,
		Amount:        amount,
		CreatedAt:     s.now(),
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return err
	}
	s.metrics.RecordFundsMoved(string(entryType), amount)
	return nil
}

// HoldForEvent списывает средства с аккаунта в эскроу события
func (s *Service) HoldForEvent(ctx context.Context, entryType models.LedgerEntryType, from int64, eventID int64, amount int64) error {
	return s.Move(ctx, entryType, &from, nil, &eventID, amount)
}

// ReleaseFromEvent выплачивает средства из эскроу события на аккаунт
func (s *Service) ReleaseFromEvent(ctx context.Context, entryType models.LedgerEntryType, to int64, eventID int64, amount int64) error {
	return s.Move(ctx, entryType, nil, &to, &eventID, amount)
}

// GetBalance возвращает текущий баланс аккаунта. Доступно владельцу
// или администратору.
func (s *Service) GetBalance(ctx context.Context, actor models.Identity, accountID int64) (int64, error) {
	if actor.AccountID != accountID && !actor.IsAdmin() {
		return 0, fmt.Errorf("%w: баланс доступен только владельцу аккаунта", models.ErrUnauthorized)
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// History возвращает последние проводки по аккаунту
func (s *Service) History(ctx context.Context, actor models.Identity, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	if actor.AccountID != accountID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: история доступна только владельцу аккаунта", models.ErrUnauthorized)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListEntriesByAccount(ctx, accountID, limit)
}

// EventEntries возвращает все проводки, связанные с событием
func (s *Service) EventEntries(ctx context.Context, actor models.Identity, eventID int64) ([]*models.LedgerEntry, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: проводки события доступны только администратору", models.ErrUnauthorized)
	}
	return s.repo.ListEntriesByEvent(ctx, eventID)
}
