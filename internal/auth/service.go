package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"scena-market/internal/audit"
	"scena-market/internal/config"
	"scena-market/pkg/models"
)

// AccountRepository интерфейс для работы с аккаунтами
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) error
}

// Transactor выполняет функцию в рамках сериализуемой транзакции
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Claims представляет полезную нагрузку токена доступа
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service представляет сервис регистрации и выпуска токенов доступа
type Service struct {
	accounts AccountRepository
	tx       Transactor
	trail    *audit.Trail
	cfg      config.AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создает новый сервис аутентификации
func NewService(accounts AccountRepository, tx Transactor, trail *audit.Trail, cfg config.AuthConfig, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		tx:       tx,
		trail:    trail,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Register регистрирует новый аккаунт с ролью user
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	if len(req.Username) < 3 {
		return nil, fmt.Errorf("%w: имя пользователя короче 3 символов", models.ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: пароль короче 8 символов", models.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	account := &models.Account{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	var record *models.AuditRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "auth.register",
			ActorID:   account.ID,
			Entity:    "account",
			EntityID:  account.ID,
			Payload:   models.AuditPayload(map[string]string{"username": req.Username}),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("зарегистрирован аккаунт",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username))
	return account, nil
}

// Login проверяет учетные данные и выпускает токен доступа
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	account, err := s.accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		if models.IsNotFound(err) {
			return "", fmt.Errorf("%w: неверное имя пользователя или пароль", models.ErrUnauthorized)
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return "", fmt.Errorf("%w: неверное имя пользователя или пароль", models.ErrUnauthorized)
	}

	now := s.now()
	claims := Claims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return token, nil
}

// ParseToken проверяет токен доступа и возвращает личность вызывающего
func (s *Service) ParseToken(tokenString string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: недействительный токен", models.ErrUnauthorized)
	}

	var accountID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &accountID); err != nil {
		return models.Identity{}, fmt.Errorf("%w: недействительный токен", models.ErrUnauthorized)
	}
	if !claims.Role.IsValid() {
		return models.Identity{}, fmt.Errorf("%w: недействительная роль в токене", models.ErrUnauthorized)
	}
	return models.Identity{AccountID: accountID, Role: claims.Role}, nil
}

// AssignRole назначает аккаунту роль. Только администратор.
func (s *Service) AssignRole(ctx context.Context, actor models.Identity, accountID int64, role models.Role) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: назначение ролей доступно только администратору", models.ErrUnauthorized)
	}
	if !role.IsValid() {
		return fmt.Errorf("%w: неизвестная роль %q", models.ErrValidation, role)
	}

	var record *models.AuditRecord
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.UpdateRole(ctx, accountID, role); err != nil {
			return err
		}
		record = &models.AuditRecord{
			Operation: "auth.assign_role",
			ActorID:   actor.AccountID,
			Entity:    "account",
			EntityID:  accountID,
			Payload:   models.AuditPayload(map[string]string{"role": string(role)}),
			CreatedAt: s.now(),
		}
		return s.trail.Record(ctx, record)
	})
	if err != nil {
		return err
	}

	s.trail.Forward(ctx, record)
	s.logger.Info("назначена роль",
		zap.Int64("account_id", accountID),
		zap.String("role", string(role)))
	return nil
}
