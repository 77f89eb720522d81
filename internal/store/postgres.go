package store

import (
	"context"
	"fmt"
	"time"

	"scena-market/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store представляет интерфейс для работы с базой данных
type Store interface {
	Account() AccountRepository
	Place() PlaceRepository
	Event() EventRepository
	Ticket() TicketRepository
	Referral() ReferralRepository
	Profile() ProfileRepository
	Ledger() LedgerRepository
	Audit() AuditRepository
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	DB() *pgxpool.Pool
	Close() error
}

// Querier — общий интерфейс пула и транзакции. Репозитории выполняют
// запросы через него и тем самым одинаково работают внутри и вне транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey — ключ контекста, под которым InTx передает активную транзакцию
type txKey struct{}

// querierFromCtx возвращает активную транзакцию из контекста либо пул.
// Благодаря этому сервис оборачивает публичную операцию в InTx, а все
// репозитории внутри автоматически выполняются в одной транзакции.
func querierFromCtx(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// store реализует интерфейс Store
type store struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	account  AccountRepository
	place    PlaceRepository
	event    EventRepository
	ticket   TicketRepository
	referral ReferralRepository
	profile  ProfileRepository
	ledger   LedgerRepository
	audit    AuditRepository
}

// NewStore создает новое подключение к базе данных
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Создание пула подключений
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	// Настройка пула
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	// Создание пула
	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	// Проверка подключения
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ошибка проверки подключения к базе данных: %w", err)
	}

	logger.Info("успешное подключение к базе данных PostgreSQL")

	s := &store{
		db:     db,
		logger: logger,
	}

	// Инициализация репозиториев
	s.account = NewAccountRepository(db, logger)
	s.place = NewPlaceRepository(db, logger)
	s.event = NewEventRepository(db, logger)
	s.ticket = NewTicketRepository(db, logger)
	s.referral = NewReferralRepository(db, logger)
	s.profile = NewProfileRepository(db, logger)
	s.ledger = NewLedgerRepository(db, logger)
	s.audit = NewAuditRepository(db, logger)

	return s, nil
}

// InTx выполняет fn внутри одной сериализуемой транзакции: операция либо
// применяется целиком, либо не оставляет никаких следов. Параллельные
// операции над одними и теми же сущностями не наблюдают частично
// примененного состояния друг друга.
func (s *store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			s.logger.Error("ошибка отката транзакции", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Account возвращает репозиторий аккаунтов
func (s *store) Account() AccountRepository {
	return s.account
}

// Place возвращает репозиторий площадок
func (s *store) Place() PlaceRepository {
	return s.place
}

// Event возвращает репозиторий событий
func (s *store) Event() EventRepository {
	return s.event
}

// Ticket возвращает репозиторий билетов
func (s *store) Ticket() TicketRepository {
	return s.ticket
}

// Referral возвращает репозиторий рефералов
func (s *store) Referral() ReferralRepository {
	return s.referral
}

// Profile возвращает репозиторий профилей распределения
func (s *store) Profile() ProfileRepository {
	return s.profile
}

// Ledger возвращает репозиторий журнала движения средств
func (s *store) Ledger() LedgerRepository {
	return s.ledger
}

// Audit возвращает репозиторий записей аудита
func (s *store) Audit() AuditRepository {
	return s.audit
}

// DB возвращает подключение к базе данных
func (s *store) DB() *pgxpool.Pool {
	return s.db
}

// Close закрывает подключение к базе данных
func (s *store) Close() error {
	s.logger.Info("закрытие подключения к базе данных")
	s.db.Close()
	return nil
}
