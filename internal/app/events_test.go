package app_test

import (
	"context"
	"testing"

	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := app.NewBus()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		bus.Subscribe(app.SubscriberFunc(func(context.Context, domain.TransitionEvent) {
			order = append(order, name)
		}))
	}

	bus.Publish(context.Background(), domain.TransitionEvent{TestimonialID: "t-1"})

	if len(order) != 3 {
		t.Fatalf("got %d calls, want 3", len(order))
	}
	for i, want := range []string{"first", "second", "third"} {
		if order[i] != want {
			t.Errorf("call %d = %q, want %q", i, order[i], want)
		}
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := app.NewBus()
	// Publishing into the void must not panic.
	bus.Publish(context.Background(), domain.TransitionEvent{TestimonialID: "t-1"})
}
