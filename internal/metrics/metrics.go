package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	logger *zap.Logger

	// Счетчики операций
	operations *prometheus.CounterVec

	// Счетчики движения средств
	fundsMoved *prometheus.CounterVec

	// Гистограмма длительности операций
	operationDuration *prometheus.HistogramVec

	// Gauge метрики
	openEvents prometheus.Gauge
}

// New создает новый экземпляр метрик
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger: logger,

		// Счетчики операций ядра
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_operations_total",
				Help: "Общее количество операций ядра",
			},
			[]string{"operation", "status"}, // status: success, validation, unauthorized, state, invariant, error
		),

		// Счетчики движения средств по типам проводок
		fundsMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_funds_moved_total",
				Help: "Суммарное движение средств по типам проводок",
			},
			[]string{"entry_type"},
		),

		// Гистограмма длительности операций
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "market_operation_duration_seconds",
				Help:    "Длительность операций ядра в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Количество открытых (поданных и утвержденных) событий
		openEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "market_open_events",
				Help: "Количество событий в статусах submitted и approved",
			},
		),
	}

	// Регистрация метрик
	prometheus.MustRegister(
		m.operations,
		m.fundsMoved,
		m.operationDuration,
		m.openEvents,
	)

	logger.Info("метрики инициализированы")
	return m
}

// RecordOperation фиксирует выполнение операции с итоговым статусом
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFundsMoved фиксирует движение средств по типу проводки
func (m *Metrics) RecordFundsMoved(entryType string, amount int64) {
	if amount <= 0 {
		return
	}
	m.fundsMoved.WithLabelValues(entryType).Add(float64(amount))
}

// SetOpenEvents обновляет количество открытых событий
func (m *Metrics) SetOpenEvents(n int) {
	m.openEvents.Set(float64(n))
}
