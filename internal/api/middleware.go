package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"scena-market/internal/config"
	"scena-market/internal/metrics"
	"scena-market/pkg/models"
)

const identityKey = "identity"

// TokenParser проверяет токен доступа и возвращает личность вызывающего
type TokenParser interface {
	ParseToken(token string) (models.Identity, error)
}

// Authenticate извлекает и проверяет токен из заголовка Authorization.
// Личность вызывающего кладется в контекст запроса.
func Authenticate(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "требуется токен доступа"})
			}
			identity, err := parser.ParseToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "недействительный токен доступа"})
			}
			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// identityFrom возвращает личность вызывающего из контекста запроса
func identityFrom(c echo.Context) models.Identity {
	identity, _ := c.Get(identityKey).(models.Identity)
	return identity
}

// RequireRole пропускает запрос только для перечисленных ролей.
// Администратор проходит всегда.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := identityFrom(c)
			if identity.IsAdmin() {
				return next(c)
			}
			for _, role := range roles {
				if identity.Role == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorResponse{Error: "недостаточно прав"})
		}
	}
}

// RateLimit ограничивает частоту запросов по аккаунту токен-бакетом в Redis.
// При выключенном ограничении или недоступном Redis запросы пропускаются.
func RateLimit(cfg config.RedisConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.RateLimitEnabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	script := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local per_sec = tonumber(ARGV[3])

        local state = redis.call('HMGET', key, 'tokens', 'refill_ms')
        local tokens = tonumber(state[1])
        local refill_ms = tonumber(state[2])
        if tokens == nil or refill_ms == nil then
            tokens = capacity
            refill_ms = now_ms
        end

        local elapsed = math.max(0, now_ms - refill_ms)
        local refilled = math.floor(elapsed * per_sec / 1000)
        if refilled > 0 then
            tokens = math.min(capacity, tokens + refilled)
            refill_ms = refill_ms + math.floor(refilled * 1000 / per_sec)
        end

        local allowed = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        end

        redis.call('HMSET', key, 'tokens', tokens, 'refill_ms', refill_ms)
        redis.call('EXPIRE', key, 60)
        return allowed
    `)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := identityFrom(c)
			key := fmt.Sprintf("ratelimit:%d", identity.AccountID)
			if identity.AccountID == 0 {
				key = "ratelimit:ip:" + c.RealIP()
			}

			allowed, err := script.Run(c.Request().Context(), rdb,
				[]string{key},
				time.Now().UnixMilli(), cfg.RateLimitBurst, cfg.RateLimitPerSec,
			).Int()
			if err != nil {
				// Недоступный Redis не блокирует обслуживание
				logger.Warn("ограничитель частоты недоступен", zap.Error(err))
				return next(c)
			}
			if allowed == 0 {
				return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "слишком много запросов"})
			}
			return next(c)
		}
	}
}

// Observe записывает метрики длительности и исхода каждого запроса
func Observe(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := "success"
			switch {
			case err != nil:
				status = "error"
			case c.Response().Status >= http.StatusBadRequest:
				status = "rejected"
			}
			m.RecordOperation(c.Request().Method+" "+c.Path(), status, time.Since(start))
			return err
		}
	}
}
