package app

import (
	"context"
	"sync"

	"github.com/kudoware/kudos/internal/domain"
)

// SubscriberFunc adapts a plain function to domain.TransitionSubscriber.
type SubscriberFunc func(ctx context.Context, event domain.TransitionEvent)

func (f SubscriberFunc) OnTransition(ctx context.Context, event domain.TransitionEvent) {
	f(ctx, event)
}

// Bus is the in-process transition-event channel. Publish delivers to
// every subscriber synchronously, in registration order, so cache
// invalidation has finished by the time a moderation call returns.
// Subscribers must not block on external systems; slow side effects
// belong on the job queue.
type Bus struct {
	mu          sync.RWMutex
	subscribers []domain.TransitionSubscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber. Registration order is delivery order.
func (b *Bus) Subscribe(s domain.TransitionSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish fans the event out to all current subscribers.
func (b *Bus) Publish(ctx context.Context, event domain.TransitionEvent) {
	b.mu.RLock()
	subs := make([]domain.TransitionSubscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		s.OnTransition(ctx, event)
	}
}
