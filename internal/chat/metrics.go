package chat

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	connectAttempts prometheus.Counter
	connectFailures prometheus.Counter
	inbound         *prometheus.CounterVec
	outbound        *prometheus.CounterVec
	handlerErrors   prometheus.Counter
	onlineUsers     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, logger *slog.Logger) *metrics {
	return &metrics{
		connectAttempts: register(reg, logger, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "connect_attempts_total",
			Help:      "Handshakes attempted with the broker.",
		})),
		connectFailures: register(reg, logger, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "connect_failures_total",
			Help:      "Handshakes that failed and were scheduled for retry.",
		})),
		inbound: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "inbound_messages_total",
			Help:      "Messages received, by channel.",
		}, []string{"channel"})),
		outbound: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "outbound_messages_total",
			Help:      "Messages published, by kind.",
		}, []string{"kind"})),
		handlerErrors: register(reg, logger, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "handler_errors_total",
			Help:      "Private message handlers that returned an error or panicked.",
		})),
		onlineUsers: register(reg, logger, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "online_users",
			Help:      "Users currently shown as online.",
		})),
	}
}

// register adds c to reg, reusing an identical collector that is already
// registered, e.g. by an earlier manager sharing the registry.
func register[T prometheus.Collector](reg prometheus.Registerer, logger *slog.Logger, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	logger.Warn("Metric not registered", "error", err)
	return c
}
