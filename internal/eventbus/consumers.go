package eventbus

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matthewbaird/plotconfig/internal/event"
)

// LogConsumer logs every event.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.Event) error {
	c.logger.Info("event",
		slog.String("type", evt.EventType),
		slog.String("session", evt.SessionID),
		slog.String("summary", evt.Summary))
	return nil
}

var completedConfigs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "plotd_configs_completed_total",
	Help: "Configurations that became executable, by plot and index type",
}, []string{"plot_type", "index_type"})

// MetricsConsumer counts completed configurations.
type MetricsConsumer struct{}

func NewMetricsConsumer() *MetricsConsumer { return &MetricsConsumer{} }

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.Event) error {
	if evt.EventType == event.TypeConfigCompleted {
		completedConfigs.WithLabelValues(string(evt.PlotType), evt.IndexType).Inc()
	}
	return nil
}
