package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"lodgr/pkg/kafka"
)

// Metrics holds producer counters
type Metrics struct {
	MessagesPublished       atomic.Int64
	MessagesPublishedFailed atomic.Int64
	PublishDurationTotal    atomic.Int64 // Nanoseconds
}

type MetricsSnapshot struct {
	Published       int64         `json:"published"`
	Failed          int64         `json:"failed"`
	AvgPublishDelay time.Duration `json:"avgPublishDurationNs"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	m.MessagesPublished.Store(0)
	m.MessagesPublishedFailed.Store(0)
	m.PublishDurationTotal.Store(0)
}

// GetAvgPublishDuration returns average publish duration
func (m *Metrics) GetAvgPublishDuration() time.Duration {
	published := m.MessagesPublished.Load()
	if published == 0 {
		return 0
	}
	return time.Duration(m.PublishDurationTotal.Load() / published)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Published:       m.MessagesPublished.Load(),
		Failed:          m.MessagesPublishedFailed.Load(),
		AvgPublishDelay: m.GetAvgPublishDuration(),
	}
}

// MetricsProducerMiddleware tracks producer metrics
func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		if err != nil {
			m.MessagesPublishedFailed.Add(1)
			return err
		}
		m.MessagesPublished.Add(1)
		m.PublishDurationTotal.Add(int64(time.Since(start)))
		return nil
	}
}
