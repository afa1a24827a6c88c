package signalbot

import (
	"context"
	"log/slog"
	"time"

	"trading-signalbot/internal/broadcast"
	"trading-signalbot/internal/scheduler"
)

// AdsHook returns a before-pass hook that sends due scheduled broadcasts.
// A nil dispatcher yields a no-op hook.
func (s *Service) AdsHook(d *broadcast.Dispatcher) func(ctx context.Context, now time.Time) {
	return func(ctx context.Context, now time.Time) {
		if d == nil {
			return
		}
		res, err := d.DispatchDue(ctx, now)
		if err != nil {
			slog.Error("ads: save failed", "error", err)
		}
		if m := s.d.Metrics; m != nil {
			m.NotificationsTotal.WithLabelValues("ad", "sent").Add(float64(res.Sent))
			m.NotificationsTotal.WithLabelValues("ad", "failed").Add(float64(res.Failed))
		}
	}
}

// AdsCheckInterval is how often RunAds looks for due broadcasts.
const AdsCheckInterval = time.Minute

// RunAds checks d for due broadcasts every interval until ctx is cancelled,
// so a long symbol pass cannot hold back a scheduled ad. The dispatcher is
// safe to share with the before-pass hook.
func (s *Service) RunAds(ctx context.Context, d *broadcast.Dispatcher, every time.Duration) {
	if d == nil {
		return
	}
	if every <= 0 {
		every = AdsCheckInterval
	}
	hook := s.AdsHook(d)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hook(ctx, s.d.Now())
		}
	}
}

// Runner builds the background loop over this service.
func (s *Service) Runner(ads *broadcast.Dispatcher, opts ...scheduler.Option) *scheduler.Runner {
	opts = append([]scheduler.Option{scheduler.WithBeforePass(s.AdsHook(ads))}, opts...)
	return scheduler.NewRunner(s.Plan, s.EvaluateAndNotify, opts...)
}

// Run drives the loop until ctx is cancelled, keeping the health status's
// loop flag current.
func (s *Service) Run(ctx context.Context, ads *broadcast.Dispatcher, opts ...scheduler.Option) error {
	if h := s.d.Health; h != nil {
		h.SetLoopRunning(true)
		defer h.SetLoopRunning(false)
	}
	slog.Info("signal loop started")
	err := s.Runner(ads, opts...).Run(ctx)
	slog.Info("signal loop stopped", "reason", err)
	return err
}
