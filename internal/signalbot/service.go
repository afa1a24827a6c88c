// Package signalbot wires market data, the signal engine and the paper
// simulator into the per-symbol evaluation the scheduler runs.
package signalbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-signalbot/internal/execution"
	"trading-signalbot/internal/indicator"
	"trading-signalbot/internal/logger"
	"trading-signalbot/internal/marketdata"
	"trading-signalbot/internal/metrics"
	"trading-signalbot/internal/model"
	"trading-signalbot/internal/notification"
	"trading-signalbot/internal/portfolio"
	"trading-signalbot/internal/report"
	"trading-signalbot/internal/scheduler"
	"trading-signalbot/internal/settings"
	"trading-signalbot/internal/strategy"
)

// Journal records paper fills durably.
type Journal interface {
	RecordFill(model.Fill) error
}

// Publisher receives every bundle and fill (the WebSocket hub).
type Publisher interface {
	PublishDecision(*model.Bundle)
	PublishFill(model.Fill)
}

// Deps are the service's collaborators. Settings, Bars and Sim are
// required; everything else is optional.
type Deps struct {
	Settings  *settings.Store
	Bars      marketdata.BarSource
	Dominance marketdata.DominanceSource
	Sim       *execution.Simulator
	Prices    *portfolio.PriceBook
	Journal   Journal
	Notifier  notification.Notifier
	Publisher Publisher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Now       func() time.Time
}

// Service evaluates symbols one at a time.
type Service struct {
	d Deps
}

// New creates a Service, filling optional collaborators with no-op defaults.
func New(d Deps) (*Service, error) {
	if d.Settings == nil || d.Bars == nil || d.Sim == nil {
		return nil, errors.New("signalbot: settings, bar source and simulator are required")
	}
	if d.Dominance == nil {
		d.Dominance = marketdata.NoDominance{}
	}
	if d.Prices == nil {
		d.Prices = portfolio.NewPriceBook()
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLogNotifier()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{d: d}, nil
}

// Plan returns the scheduler plan for the current settings.
func (s *Service) Plan() scheduler.Plan {
	st := s.d.Settings.Snapshot()
	return scheduler.Plan{
		Symbols:      st.Symbols,
		BaseInterval: st.BaseInterval,
		AutoMessage:  st.AutoMessage,
	}
}

// Evaluate runs the full pipeline for symbol against one settings snapshot:
// fetch bars, build the indicator snapshot, decide, score, target, schedule
// and apply the decision to the paper ledger. It has no delivery side
// effects; see EvaluateAndNotify.
func (s *Service) Evaluate(ctx context.Context, symbol string) (model.Bundle, error) {
	return s.evaluateWith(ctx, symbol, s.d.Settings.Snapshot())
}

func (s *Service) evaluateWith(ctx context.Context, symbol string, st settings.Settings) (model.Bundle, error) {
	start := s.d.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, start))

	b, err := s.evaluate(ctx, symbol, st)
	s.observe(b, err, start)
	if err != nil {
		slog.Warn("evaluation skipped", append(logger.LogWithTrace(ctx),
			"symbol", symbol, "error", err)...)
		return model.Bundle{}, err
	}

	slog.Info("evaluated", append(logger.LogWithTrace(ctx),
		"symbol", symbol, "status", b.Decision.Status,
		"buy", b.Decision.Votes.Buy, "sell", b.Decision.Votes.Sell,
		"risk", b.Risk, "next_delay", b.NextDelay)...)
	if s.d.Publisher != nil {
		s.d.Publisher.PublishDecision(&b)
	}
	return b, nil
}

func (s *Service) evaluate(ctx context.Context, symbol string, st settings.Settings) (model.Bundle, error) {
	tf, limit := settings.ProfileParams(st.Profile)

	bars, err := s.d.Bars.FetchBars(ctx, symbol, tf, limit)
	if err != nil {
		return model.Bundle{}, err
	}
	snap, err := indicator.Compute(symbol, tf, bars)
	if err != nil {
		return model.Bundle{}, fmt.Errorf("%s: %w", symbol, err)
	}
	snap.Dominance = s.d.Dominance.Dominance(ctx, symbol)

	decision := strategy.Evaluate(&snap, st.Votes)
	b := model.Bundle{
		Symbol:      symbol,
		Profile:     st.Profile,
		Snapshot:    snap,
		Decision:    decision,
		Risk:        portfolio.ScoreRisk(snap.VolatilityRatio, decision.Votes),
		Targets:     strategy.Targets(decision.Status, snap.LastClose, snap.ATR),
		NextDelay:   scheduler.NextDelay(st.BaseInterval, snap.VolatilityRatio),
		EvaluatedAt: s.d.Now().UTC(),
	}

	s.d.Prices.UpdatePrice(symbol, snap.LastClose, b.EvaluatedAt)

	fill, ok := s.d.Sim.Apply(execution.Order{
		Symbol:  symbol,
		Status:  decision.Status,
		Price:   snap.LastClose,
		RiskPct: float64(st.Paper.RiskPct),
		Enabled: st.Paper.Enabled,
	})
	if ok {
		b.PaperNote = fill.Note
		s.recordFill(ctx, fill)
	}
	return b, nil
}

func (s *Service) recordFill(ctx context.Context, fill model.Fill) {
	if s.d.Metrics != nil {
		s.d.Metrics.PaperFillsTotal.WithLabelValues(string(fill.Action)).Inc()
	}
	if s.d.Journal != nil {
		if err := s.d.Journal.RecordFill(fill); err != nil {
			slog.Error("journal fill failed", append(logger.LogWithTrace(ctx),
				"fill_id", fill.ID, "error", err)...)
			if s.d.Metrics != nil {
				s.d.Metrics.JournalErrors.Inc()
			}
		}
	}
	if s.d.Publisher != nil {
		s.d.Publisher.PublishFill(fill)
	}
}

func (s *Service) observe(b model.Bundle, err error, start time.Time) {
	now := s.d.Now()
	if s.d.Health != nil {
		var healthErr error
		if err != nil && !errors.Is(err, model.ErrDataUnavailable) {
			healthErr = err
		}
		s.d.Health.RecordEvaluation(now, healthErr)
	}
	m := s.d.Metrics
	if m == nil {
		return
	}
	m.EvaluationDur.Observe(now.Sub(start).Seconds())
	switch {
	case err == nil:
		m.EvaluationsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, model.ErrDataUnavailable):
		m.EvaluationsTotal.WithLabelValues("unavailable").Inc()
		return
	default:
		m.EvaluationsTotal.WithLabelValues("error").Inc()
		return
	}

	m.StatusTotal.WithLabelValues(string(b.Decision.Status)).Inc()
	m.RiskScore.WithLabelValues(b.Symbol).Set(float64(b.Risk))
	m.NextDelay.WithLabelValues(b.Symbol).Set(float64(b.NextDelay))
	m.Volatility.WithLabelValues(b.Symbol).Set(b.Snapshot.VolatilityRatio)

	sum := portfolio.Summarize(s.d.Sim.Snapshot(), s.d.Prices.Prices())
	m.PaperCash.Set(sum.Cash)
	m.PaperRealized.Set(sum.RealizedPnL)
	m.PaperEquity.Set(sum.Equity)
	m.PaperOpen.Set(float64(sum.OpenPositions))
}

// Notify sends the bundle's report signed with signature, which should come
// from the snapshot the bundle was evaluated against. Delivery failures are
// logged and counted, and returned for callers that care.
func (s *Service) Notify(ctx context.Context, b *model.Bundle, signature string) error {
	alert := notification.Alert{
		Level:   notification.AlertInfo,
		Title:   report.Title(b),
		Message: report.WithSignature(report.Format(b), signature),
	}
	err := s.d.Notifier.Send(ctx, alert)
	result := "sent"
	if err != nil {
		result = "failed"
		slog.Error("report delivery failed", "symbol", b.Symbol, "error", err)
	}
	if s.d.Metrics != nil {
		s.d.Metrics.NotificationsTotal.WithLabelValues("report", result).Inc()
	}
	return err
}

// EvaluateAndNotify is the scheduler's per-symbol step: evaluate, deliver
// the report, return the next delay. Delivery failures never fail the step.
func (s *Service) EvaluateAndNotify(ctx context.Context, symbol string) (int, error) {
	st := s.d.Settings.Snapshot()
	b, err := s.evaluateWith(ctx, symbol, st)
	if err != nil {
		return 0, err
	}
	s.Notify(ctx, &b, st.Signature)
	return b.NextDelay, nil
}
