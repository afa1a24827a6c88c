package broadcast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trading-signalbot/internal/notification"
)

type captureNotifier struct {
	alerts []notification.Alert
	err    error
}

func (c *captureNotifier) Send(_ context.Context, a notification.Alert) error {
	c.alerts = append(c.alerts, a)
	return c.err
}

func writeAds(t *testing.T, ads []Ad) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ads.json")
	if err := Save(path, ads); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func newTestDispatcher(path string, n notification.Notifier, sig string) *Dispatcher {
	d := NewDispatcher(path, n, func() string { return sig })
	d.loc = time.UTC
	return d
}

var noon = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLoad_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	if ads := Load(filepath.Join(dir, "nope.json")); len(ads) != 0 {
		t.Errorf("missing file: %v", ads)
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if ads := Load(bad); len(ads) != 0 {
		t.Errorf("malformed file: %v", ads)
	}
}

func TestDispatchDue_SendsDueOnly(t *testing.T) {
	path := writeAds(t, []Ad{
		{Title: "due", Description: "d", Link: "https://a", Active: true, Schedule: &Schedule{Date: "2026-03-01", Time: "11:59:00"}},
		{Title: "later", Description: "d", Link: "https://b", Active: true, Schedule: &Schedule{Date: "2026-03-01", Time: "12:00:01"}},
		{Title: "inactive", Active: false, Schedule: &Schedule{Date: "2020-01-01", Time: "00:00:00"}},
		{Title: "unscheduled", Active: true},
	})
	n := &captureNotifier{}
	res, err := newTestDispatcher(path, n, "").DispatchDue(context.Background(), noon)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Sent != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(n.alerts) != 1 || n.alerts[0].Message != "due\nd\nhttps://a" {
		t.Fatalf("alerts = %+v", n.alerts)
	}

	ads := Load(path)
	if ads[0].Active {
		t.Error("sent ad still active")
	}
	if !ads[1].Active || !ads[3].Active {
		t.Error("untouched ads were deactivated")
	}
}

func TestDispatchDue_ExactTimeIsDue(t *testing.T) {
	path := writeAds(t, []Ad{
		{Title: "t", Active: true, Schedule: &Schedule{Date: "2026-03-01", Time: "12:00:00"}},
	})
	n := &captureNotifier{}
	if _, err := newTestDispatcher(path, n, "").DispatchDue(context.Background(), noon); err != nil {
		t.Fatal(err)
	}
	if len(n.alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(n.alerts))
	}
}

func TestDispatchDue_FailureStillDeactivates(t *testing.T) {
	path := writeAds(t, []Ad{
		{Title: "t", Active: true, Schedule: &Schedule{Date: "2026-01-01", Time: "00:00:00"}},
	})
	n := &captureNotifier{err: errors.New("telegram down")}
	d := newTestDispatcher(path, n, "")

	res, err := d.DispatchDue(context.Background(), noon)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if Load(path)[0].Active {
		t.Error("failed ad still active")
	}

	// Second pass sends nothing.
	d.DispatchDue(context.Background(), noon.Add(time.Hour))
	if len(n.alerts) != 1 {
		t.Errorf("ad resent: %d alerts", len(n.alerts))
	}
}

func TestDispatchDue_SignatureAndImage(t *testing.T) {
	path := writeAds(t, []Ad{
		{Title: "T", Description: "D", Link: "L", ImagePath: "/tmp/x.png", Active: true,
			Schedule: &Schedule{Date: "2026-01-01", Time: "00:00:00"}},
	})
	n := &captureNotifier{}
	newTestDispatcher(path, n, "desk").DispatchDue(context.Background(), noon)
	if len(n.alerts) != 1 {
		t.Fatalf("alerts = %d", len(n.alerts))
	}
	if n.alerts[0].Message != "T\nD\nL\n\ndesk" || n.alerts[0].ImagePath != "/tmp/x.png" {
		t.Errorf("alert = %+v", n.alerts[0])
	}
}

func TestDispatchDue_BadScheduleSkipped(t *testing.T) {
	path := writeAds(t, []Ad{
		{Title: "t", Active: true, Schedule: &Schedule{Date: "01/03/2026", Time: "noon"}},
	})
	n := &captureNotifier{}
	if _, err := newTestDispatcher(path, n, "").DispatchDue(context.Background(), noon); err != nil {
		t.Fatal(err)
	}
	if len(n.alerts) != 0 || !Load(path)[0].Active {
		t.Error("bad schedule should be skipped and left active")
	}
}
