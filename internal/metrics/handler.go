package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler возвращает HTTP обработчик для метрик Prometheus
func (m *Metrics) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// HealthHandler возвращает обработчик проверки здоровья сервиса
func (m *Metrics) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"scena-market"}`))
	}
}
