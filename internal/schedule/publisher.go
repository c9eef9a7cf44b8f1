// Package schedule rebuilds the site when a future-dated post becomes due.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
)

// Publisher polls on a fixed interval and calls trigger once the earliest
// scheduled publication time has passed.
type Publisher struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	trigger   func()
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	next time.Time
}

// NewPublisher creates a stopped publisher.
func NewPublisher(interval time.Duration, trigger func(), logger *slog.Logger) (*Publisher, error) {
	if interval <= 0 {
		return nil, foundationerrors.ValidationError("schedule interval must be > 0").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to create scheduler").Build()
	}
	return &Publisher{
		scheduler: s,
		interval:  interval,
		trigger:   trigger,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Start registers the polling job and starts the scheduler.
func (p *Publisher) Start(_ context.Context) error {
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() { p.Check() }),
		gocron.WithName("scheduled-publication"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to create publication job").Build()
	}
	p.scheduler.Start()
	p.logger.Debug("Scheduled publication check started", slog.Duration("interval", p.interval))
	return nil
}

// Stop shuts the scheduler down.
func (p *Publisher) Stop() error {
	return p.scheduler.Shutdown()
}

// SetNext records the earliest pending publication time; zero clears it.
func (p *Publisher) SetNext(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = t
}

// Next returns the recorded publication time.
func (p *Publisher) Next() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// Check triggers a rebuild if the recorded time has passed. It reports
// whether it did.
func (p *Publisher) Check() bool {
	p.mu.Lock()
	due := !p.next.IsZero() && !p.now().Before(p.next)
	next := p.next
	if due {
		p.next = time.Time{}
	}
	p.mu.Unlock()

	if !due {
		return false
	}
	p.logger.Info("Scheduled post is due, rebuilding", slog.Time("publish_at", next), logfields.Reason("scheduled"))
	p.trigger()
	return true
}
