// Package events forwards hold lifecycle events from the unit coordinators to
// Kafka. Coordinators hand events over without blocking; a single worker
// drains the queue into the producer.
package events

import (
	"context"
	"lodgr/internal/availability/coordinator"
	"lodgr/internal/availability/interval"
	"lodgr/pkg/kafka"
	"lodgr/pkg/logger"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	SchemaVersion = "1"
	Source        = "availability-coordinator"

	DefaultQueueSize    = 1024
	DefaultMaxRetries   = 2
	DefaultWriteTimeout = 5 * time.Second
	retryBackoff        = 100 * time.Millisecond
)

// HoldEvent is the JSON payload written to the hold events topic.
type HoldEvent struct {
	Type       string    `json:"type"`
	Token      string    `json:"token"`
	UnitID     string    `json:"unitId"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	Status     string    `json:"status"`
	BookingID  string    `json:"bookingId,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewHoldEvent(e coordinator.Event) HoldEvent {
	return HoldEvent{
		Type:       string(e.Type),
		Token:      e.Hold.Token,
		UnitID:     e.Hold.UnitID,
		StartDate:  interval.FormatDate(e.Hold.Range.Start),
		EndDate:    interval.FormatDate(e.Hold.Range.End),
		Status:     string(e.Hold.Status),
		BookingID:  e.Hold.BookingID,
		ExpiresAt:  e.Hold.ExpiresAt,
		OccurredAt: e.OccurredAt,
	}
}

// EventID is stable for a hold and event type, so a redelivered event carries
// the id of the first delivery.
func EventID(e coordinator.Event) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("lodgr:"+e.Hold.Token+":"+string(e.Type))).String()
}

// Producer is the subset of *kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	SendToDLQ(ctx context.Context, msg kafka.Message, originalErr error) error
	Close() error
}

type Options struct {
	QueueSize    int
	MaxRetries   int
	WriteTimeout time.Duration
}

type KafkaPublisher struct {
	producer Producer
	log      *logger.Logger
	opts     Options

	mu     sync.RWMutex
	queue  chan coordinator.Event
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
}

func NewKafkaPublisher(producer Producer, opts Options, log *logger.Logger) *KafkaPublisher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	p := &KafkaPublisher{
		producer: producer,
		log:      log,
		opts:     opts,
		queue:    make(chan coordinator.Event, opts.QueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues e. When the queue is full the event is dropped and counted.
func (p *KafkaPublisher) Publish(e coordinator.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
		p.log.Warn("Hold event queue full, dropping event",
			"event_type", e.Type,
			"unit_id", e.Hold.UnitID,
			"token", e.Hold.Token,
		)
	}
}

func (p *KafkaPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events, drains what is queued and closes the producer.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		p.log.Warn("Hold event queue not fully drained before shutdown", "pending", len(p.queue))
	}
	return p.producer.Close()
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for e := range p.queue {
		p.deliver(e)
	}
}

func (p *KafkaPublisher) deliver(e coordinator.Event) {
	msg, err := kafka.NewMessage().
		WithKey(e.Hold.UnitID).
		WithValue(NewHoldEvent(e)).
		WithEventID(EventID(e)).
		WithEventType(string(e.Type)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(e.Hold.Token).
		WithTimestamp(e.OccurredAt).
		Build()
	if err != nil {
		p.log.Error("Failed to build hold event", "event_type", e.Type, "token", e.Hold.Token, "error", err)
		return
	}

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
		err = p.producer.Publish(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		if !kafka.ShouldRetry(err, attempt, p.opts.MaxRetries) {
			break
		}
		time.Sleep(retryBackoff * time.Duration(attempt+1))
	}

	p.log.Error("Failed to publish hold event", "event_type", e.Type, "token", e.Hold.Token, "error", err)

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
	defer cancel()
	if dlqErr := p.producer.SendToDLQ(ctx, msg, err); dlqErr != nil {
		p.log.Error("Failed to send hold event to DLQ", "token", e.Hold.Token, "error", dlqErr)
	}
}

// Noop discards every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(coordinator.Event) {}

func (Noop) Dropped() int64 { return 0 }

func (Noop) Close(context.Context) error { return nil }
