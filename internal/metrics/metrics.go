// Package metrics define las métricas Prometheus de tokengate. Paquete
// standalone para evitar ciclos de import entre backend, flow y HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CredentialsIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_credentials_issued_total",
		Help: "Credenciales emitidas por clase",
	}, []string{"kind"})

	Redemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_redemptions_total",
		Help: "Canjes/validaciones por clase y resultado",
	}, []string{"kind", "result"})

	BackendOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokengate_backend_op_latency_ms",
		Help:    "Latencia de operaciones contra el backend en milisegundos",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"op", "result"})
)

// Register registra las métricas en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{CredentialsIssued, Redemptions, BackendOpLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveBackendOp registra la latencia de una operación de backend.
func ObserveBackendOp(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BackendOpLatency.WithLabelValues(op, result).Observe(float64(d.Milliseconds()))
}
