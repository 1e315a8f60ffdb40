// Package notify publishes successful endorsements to downstream consumers.
// Publishing is best effort and never affects the endorsement result.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/kafka"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

const DefaultTopic = "directory_endorsements"

type Event struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	ActorID    string     `json:"actor_id"`
	ItemID     string     `json:"item_id"`
	ItemType   string     `json:"item_type"`
	Counter    *int64     `json:"counter,omitempty"`
	PinExpiry  *time.Time `json:"pin_expiry,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Dispatcher must not block the caller
type Dispatcher interface {
	Dispatch(ev Event)
}

// Noop drops every event
type Noop struct{}

func (Noop) Dispatch(Event) {}

type KafkaConfig struct {
	Topic      string
	BufferSize int
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration
}

func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Topic:      DefaultTopic,
		BufferSize: 1024,
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Timeout:    5 * time.Second,
	}
}

// KafkaDispatcher queues events in memory and publishes them from a single
// background goroutine. A full queue drops the event with a warning.
type KafkaDispatcher struct {
	producer kafka.Producer
	cfg      KafkaConfig
	logger   logging.Logger
	executor failsafe.Executor[any]

	queue chan Event
	done  chan struct{}
	once  sync.Once
}

func NewKafkaDispatcher(producer kafka.Producer, cfg KafkaConfig, logger logging.Logger) *KafkaDispatcher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay * 2
	}

	retry := retrypolicy.NewBuilder[any]().
		WithMaxRetries(cfg.MaxRetries).
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithJitterFactor(0.1).
		Build()

	return &KafkaDispatcher{
		producer: producer,
		cfg:      cfg,
		logger:   logger,
		executor: failsafe.With[any](retry),
		queue:    make(chan Event, cfg.BufferSize),
		done:     make(chan struct{}),
	}
}

func (d *KafkaDispatcher) Dispatch(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	select {
	case d.queue <- ev:
	default:
		d.logger.WithFields(logging.Fields{
			"event_kind": ev.Kind,
			"item_id":    ev.ItemID,
			"item_type":  ev.ItemType,
		}).Warn("Notification queue full, dropping event")
	}
}

// Start publishes queued events until ctx is cancelled, then drains what is
// already queued.
func (d *KafkaDispatcher) Start(ctx context.Context) {
	defer close(d.done)
	d.logger.WithField("topic", d.cfg.Topic).Info("Starting notification publisher")

	for {
		select {
		case ev := <-d.queue:
			d.publish(ctx, ev)
		case <-ctx.Done():
			d.drain()
			d.logger.Info("Stopping notification publisher")
			return
		}
	}
}

// Wait blocks until Start has returned
func (d *KafkaDispatcher) Wait() {
	<-d.done
}

func (d *KafkaDispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.publish(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *KafkaDispatcher) publish(ctx context.Context, ev Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timeout)
	defer cancel()

	err := d.executor.WithContext(pubCtx).Run(func() error {
		return kafka.ProduceJSON(pubCtx, d.producer, d.cfg.Topic, ev.ItemType+":"+ev.ItemID, ev, map[string]string{
			"event_type": ev.Kind,
			"source":     "bosun",
		})
	})
	if err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{
			"event_id":   ev.ID,
			"event_kind": ev.Kind,
			"item_id":    ev.ItemID,
		}).Error("Failed to publish notification")
	}
}

// Close closes the producer. Call it after Start has returned.
func (d *KafkaDispatcher) Close() error {
	var err error
	d.once.Do(func() {
		err = d.producer.Close()
	})
	return err
}
