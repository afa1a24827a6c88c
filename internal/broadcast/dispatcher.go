package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trading-signalbot/internal/notification"
	"trading-signalbot/internal/report"
)

// Result summarises one dispatch pass.
type Result struct {
	Sent   int
	Failed int
}

// Dispatcher sends due ads through a notifier and marks them inactive.
type Dispatcher struct {
	mu        sync.Mutex
	path      string
	notifier  notification.Notifier
	signature func() string
	loc       *time.Location
}

// NewDispatcher creates a dispatcher for the ads file at path. signature may
// be nil.
func NewDispatcher(path string, n notification.Notifier, signature func() string) *Dispatcher {
	if signature == nil {
		signature = func() string { return "" }
	}
	return &Dispatcher{path: path, notifier: n, signature: signature, loc: time.Local}
}

// DispatchDue sends every active ad whose schedule is at or before now. An
// ad is deactivated once attempted, whether or not delivery succeeded, so
// it is never sent twice. The file is rewritten only when something changed.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result
	ads := Load(d.path)
	changed := false
	for i := range ads {
		ad := &ads[i]
		if !ad.Active || ad.Schedule == nil {
			continue
		}
		at, err := ad.Schedule.At(d.loc)
		if err != nil {
			slog.Warn("ads: bad schedule", "title", ad.Title, "error", err)
			continue
		}
		if now.Before(at) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		alert := notification.Alert{
			Level:     notification.AlertInfo,
			Message:   report.WithSignature(ad.Message(), d.signature()),
			ImagePath: ad.ImagePath,
		}
		if err := d.notifier.Send(ctx, alert); err != nil {
			slog.Error("ads: send failed", "title", ad.Title, "error", err)
			res.Failed++
		} else {
			slog.Info("ads: sent", "title", ad.Title)
			res.Sent++
		}
		ad.Active = false
		changed = true
	}

	if !changed {
		return res, nil
	}
	return res, Save(d.path, ads)
}
