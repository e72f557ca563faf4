package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"
)

// Config sizes the queue. MaxWorkers is the bound on concurrent bulk
// items in flight, which in turn bounds pressure on the store and the
// cache during mass moderation.
type Config struct {
	MaxWorkers int
}

// Setup creates a River client with the moderation and notification
// workers registered and runs River's internal migrations. The caller
// must call client.Start() to begin processing jobs and client.Stop()
// for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, cfg Config, svc *app.ModerationService, tracker *app.BatchTracker, store domain.TestimonialStore, sender domain.NotificationSender) (*Client, error) {
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewModerationItemWorker(svc, tracker))
	river.AddWorker(workers, NewNotificationWorker(store, sender))

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
