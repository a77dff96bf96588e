package repository

import (
	"context"
	"errors"

	"ScreenerView/internal/domain/models"
	drepo "ScreenerView/internal/domain/repository"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
}

// KafkaNotifier publishes status events keyed by event type.
type KafkaNotifier struct {
	pub EventPublisher
}

func NewKafkaNotifier(pub EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{pub: pub}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev models.Event) error {
	return n.pub.Publish(ctx, []byte(ev.Type), ev)
}

// MultiNotifier fans an event out to every notifier.
type MultiNotifier []drepo.Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev models.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
