package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"scena-market/internal/config"
	"scena-market/internal/metrics"
	"scena-market/pkg/models"
)

// Server представляет HTTP сервер ядра маркетплейса
type Server struct {
	echo   *echo.Echo
	cfg    config.AppConfig
	logger *zap.Logger
}

// NewServer собирает маршруты и промежуточные обработчики.
// Каждая публичная операция ядра доступна одним маршрутом.
func NewServer(cfg *config.Config, handler *Handler, parser TokenParser, m *metrics.Metrics, rdb *redis.Client, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(Observe(m))
	e.Use(RateLimit(cfg.Redis, rdb, logger))

	e.GET("/health", echo.WrapHandler(m.HealthHandler()))
	e.GET("/metrics", echo.WrapHandler(m.MetricsHandler()))

	v1 := e.Group("/v1")
	v1.POST("/auth/register", handler.Register)
	v1.POST("/auth/login", handler.Login)

	authed := v1.Group("", Authenticate(parser))

	authed.POST("/accounts/:id/role", handler.AssignRole, RequireRole())
	authed.POST("/accounts/:id/deposit", handler.Deposit, RequireRole())
	authed.POST("/accounts/:id/withdraw", handler.Withdraw)
	authed.GET("/accounts/:id/balance", handler.GetBalance)
	authed.GET("/accounts/:id/ledger", handler.LedgerHistory)

	authed.POST("/places", handler.RequestPlace)
	authed.GET("/places", handler.ListPlaces)
	authed.GET("/places/:id", handler.GetPlace)
	authed.POST("/places/:id/approve", handler.ApprovePlace, RequireRole(models.RoleProvider))
	authed.PUT("/places/:id", handler.UpdatePlace, RequireRole(models.RoleProvider))
	authed.POST("/places/:id/decline", handler.DeclinePlace, RequireRole(models.RoleProvider))

	authed.POST("/events", handler.SubmitEvent)
	authed.GET("/events/:id", handler.GetEvent)
	authed.PUT("/events/:id", handler.UpdateEvent)
	authed.POST("/events/:id/approve", handler.ApproveEvent, RequireRole(models.RoleProvider))
	authed.POST("/events/:id/decline", handler.DeclineEvent, RequireRole(models.RoleProvider))
	authed.POST("/events/:id/cancel", handler.CancelEvent)
	authed.POST("/events/:id/close", handler.CloseEvent)
	authed.GET("/events/:id/ledger", handler.EventLedger, RequireRole())

	authed.POST("/events/:id/categories", handler.CreateCategory)
	authed.GET("/events/:id/categories", handler.ListCategories)
	authed.POST("/events/:id/tickets", handler.MintTickets)
	authed.GET("/tickets/:id", handler.GetTicket)
	authed.POST("/tickets/:id/redeem", handler.RedeemTicket, RequireRole(models.RoleStaff))

	authed.POST("/profiles", handler.CreateProfile, RequireRole())
	authed.GET("/profiles/:id", handler.GetProfile, RequireRole())
	authed.PUT("/profiles/:id", handler.UpdateProfile, RequireRole())
	authed.POST("/profiles/:id/default", handler.SetDefaultProfile, RequireRole())
	authed.POST("/profiles/:id/event", handler.SetEventProfile, RequireRole())

	return &Server{echo: e, cfg: cfg.App, logger: logger}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("HTTP сервер запущен", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер с ожиданием активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
