package config

import (
	"os"
	"testing"
	"time"

	"scena-market/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Устанавливаем переменные окружения для теста
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_USER", "test_user")
	os.Setenv("DB_PASSWORD", "test_password")
	os.Setenv("DB_NAME", "test_db")
	os.Setenv("JWT_SECRET", "test_secret")

	// Загружаем конфигурацию
	cfg, err := Load()

	// Проверяем, что конфигурация загружена без ошибок
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	// Проверяем значения
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "test_user", cfg.Database.User)
	assert.Equal(t, "test_password", cfg.Database.Password)
	assert.Equal(t, "test_db", cfg.Database.Name)
	assert.Equal(t, "test_secret", cfg.Auth.JWTSecret)

	// Проверяем значения по умолчанию
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, int64(100), cfg.Market.SubmissionFee)
	assert.Equal(t, models.Percent(10), cfg.Market.PlatformCutA)
	assert.Equal(t, models.Percent(5), cfg.Market.PlatformCutB)
	assert.Equal(t, models.BasisPoints(1000), cfg.Referral.BonusBps)
	assert.Equal(t, [3]models.BasisPoints{5000, 3000, 2000}, cfg.Referral.PoolSplit)
	assert.True(t, cfg.Referral.OnlyActive)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "test_user",
		Password: "test_password",
		Name:     "test_db",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	expected := "host=localhost port=5432 user=test_user password=test_password dbname=test_db sslmode=disable"
	assert.Equal(t, expected, dsn)
}

func TestAppConfigMethods(t *testing.T) {
	cfg := &AppConfig{
		Env:      "development",
		LogLevel: "debug",
	}

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestParsePoolSplit(t *testing.T) {
	split, err := parsePoolSplit("5000,3000,2000")
	require.NoError(t, err)
	assert.Equal(t, [3]models.BasisPoints{5000, 3000, 2000}, split)

	// Сумма уровней обязана составлять ровно 10000
	_, err = parsePoolSplit("5000,3000,1000")
	assert.Error(t, err)

	// Ровно три уровня
	_, err = parsePoolSplit("5000,5000")
	assert.Error(t, err)

	_, err = parsePoolSplit("5000,abc,2000")
	assert.Error(t, err)
}

func TestParseRateSteps(t *testing.T) {
	steps, err := parseRateSteps("1:2000,5:5000,10:10000")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, 1, steps[0].MinReferrals)
	assert.Equal(t, models.BasisPoints(2000), steps[0].Rate)
	assert.Equal(t, 10, steps[2].MinReferrals)
	assert.Equal(t, models.BasisPoints(10000), steps[2].Rate)

	// Пороги должны идти по возрастанию
	_, err = parseRateSteps("5:2000,1:5000")
	assert.Error(t, err)

	// Ставка не может превышать 10000 базисных пунктов
	_, err = parseRateSteps("1:20000")
	assert.Error(t, err)

	_, err = parseRateSteps("1-2000")
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	// Тест с пустыми обязательными полями
	cfg := &Config{}
	err := validateConfig(cfg)
	assert.Error(t, err)

	valid := func() *Config {
		c := &Config{}
		c.Database.Host = "localhost"
		c.Database.User = "user"
		c.Database.Password = "password"
		c.Database.Name = "db"
		c.Auth.JWTSecret = "secret"
		c.Market.SubmissionFee = 100
		c.Market.MaxAdvanceDays = 365
		c.Market.PlatformCutA = 10
		c.Market.PlatformCutB = 5
		c.Market.MasterAccountID = 1
		c.Market.ReserveAccountID = 2
		c.Referral.Steps = []models.RateStep{{MinReferrals: 1, Rate: 2000}}
		return c
	}

	assert.NoError(t, validateConfig(valid()))

	cfg = valid()
	cfg.Market.MasterAccountID = cfg.Market.ReserveAccountID
	assert.Error(t, validateConfig(cfg))

	cfg = valid()
	cfg.Market.PlatformCutA = 60
	cfg.Market.PlatformCutB = 50
	assert.Error(t, validateConfig(cfg))

	cfg = valid()
	cfg.Market.SubmissionFee = -1
	assert.Error(t, validateConfig(cfg))

	cfg = valid()
	cfg.Referral.Steps = nil
	assert.Error(t, validateConfig(cfg))
}
