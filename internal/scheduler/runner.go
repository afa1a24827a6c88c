package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// DefaultBaseInterval is used when a plan carries no usable base interval.
const DefaultBaseInterval = 900

// Plan is the settings snapshot a pass runs against.
type Plan struct {
	Symbols      []string
	BaseInterval int // seconds
	AutoMessage  bool
}

// EvalFunc evaluates one symbol and returns its next delay in seconds.
// A non-positive delay or an error falls back to the base interval.
type EvalFunc func(ctx context.Context, symbol string) (int, error)

// Runner is the single background loop. Symbols are evaluated one at a time
// in plan order; nothing in a pass runs concurrently.
type Runner struct {
	plan       func() Plan
	eval       EvalFunc
	beforePass func(ctx context.Context, now time.Time)

	idle  time.Duration
	unit  time.Duration // length of one delay "second"
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBeforePass sets a hook run at the start of every pass, before the
// symbol sweep (scheduled broadcasts are dispatched here).
func WithBeforePass(fn func(ctx context.Context, now time.Time)) Option {
	return func(r *Runner) { r.beforePass = fn }
}

// WithIdle sets the pause between passes. Default 1s.
func WithIdle(d time.Duration) Option {
	return func(r *Runner) { r.idle = d }
}

// WithUnit sets the wall-clock length of one delay second.
func WithUnit(d time.Duration) Option {
	return func(r *Runner) { r.unit = d }
}

// WithClock overrides the time source passed to the before-pass hook.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. plan is called once per pass; eval once per symbol.
func NewRunner(plan func() Plan, eval EvalFunc, opts ...Option) *Runner {
	r := &Runner{
		plan:  plan,
		eval:  eval,
		idle:  time.Second,
		unit:  time.Second,
		now:   time.Now,
		sleep: sleepCtx,
		log:   slog.Default().With("component", "scheduler"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run loops until ctx is cancelled. Cancellation is observed between
// symbols, between passes and during any wait.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("scheduler started")
	defer r.log.Info("scheduler stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.pass(ctx); err != nil {
			return err
		}
		if err := r.sleep(ctx, r.idle); err != nil {
			return err
		}
	}
}

// pass runs one sweep. It returns only ctx errors.
func (r *Runner) pass(ctx context.Context) error {
	if r.beforePass != nil {
		r.beforePass(ctx, r.now())
	}

	p := r.plan()
	if !p.AutoMessage {
		return nil
	}
	base := p.BaseInterval
	if base <= 0 {
		base = DefaultBaseInterval
	}

	for _, sym := range p.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay, err := r.eval(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("evaluation failed, using base interval",
				"symbol", sym, "base_s", base, "error", err)
			delay = base
		}
		if delay <= 0 {
			delay = base
		}

		r.log.Debug("waiting before next symbol", "symbol", sym, "delay_s", delay)
		if err := r.sleep(ctx, time.Duration(delay)*r.unit); err != nil {
			return err
		}
	}
	return nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
