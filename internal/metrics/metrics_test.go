package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func healthBody(t *testing.T, h *HealthStatus) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body
}

func TestHealth_Healthy(t *testing.T) {
	h := NewHealthStatus()
	h.SetLoopRunning(true)
	h.Probe(context.Background(), nil, fakePinger{})
	h.RecordEvaluation(time.Now(), nil)

	code, body := healthBody(t, h)
	if code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("code=%d body=%v", code, body)
	}
	if body["redis_enabled"] != false {
		t.Errorf("redis should be reported disabled: %v", body)
	}
}

func TestHealth_RedisDownDegrades(t *testing.T) {
	h := NewHealthStatus()
	h.SetLoopRunning(true)
	h.Probe(context.Background(), fakePinger{err: errors.New("refused")}, fakePinger{})

	code, body := healthBody(t, h)
	if code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("code=%d body=%v", code, body)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	h := NewHealthStatus()
	h.Probe(context.Background(), nil, fakePinger{err: errors.New("disk")})
	h.RecordEvaluation(time.Now(), errors.New("boom"))

	code, body := healthBody(t, h)
	if code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Errorf("code=%d body=%v", code, body)
	}
	if body["last_eval_error"] != "boom" {
		t.Errorf("last_eval_error = %v", body["last_eval_error"])
	}
}

func TestServer_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.EvaluationsTotal.WithLabelValues("ok").Inc()
	m.StatusTotal.WithLabelValues("Buy").Add(2)
	m.PaperCash.Set(9500)

	h := NewHealthStatus()
	srv := httptest.NewServer(NewServer(":0", h, reg).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	for _, want := range []string{
		`signalbot_evaluations_total{result="ok"} 1`,
		`signalbot_decisions_total{status="Buy"} 2`,
		`signalbot_paper_cash 9500`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
