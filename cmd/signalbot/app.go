package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"trading-signalbot/config"
	"trading-signalbot/internal/broadcast"
	"trading-signalbot/internal/execution"
	"trading-signalbot/internal/gateway"
	"trading-signalbot/internal/logger"
	"trading-signalbot/internal/marketdata"
	"trading-signalbot/internal/metrics"
	"trading-signalbot/internal/notification"
	"trading-signalbot/internal/portfolio"
	"trading-signalbot/internal/report"
	"trading-signalbot/internal/settings"
	"trading-signalbot/internal/signalbot"
	redisstore "trading-signalbot/internal/store/redis"
)

// app holds everything both commands share.
type app struct {
	cfg      *config.Config
	settings *settings.Store
	redis    *redisstore.Store // nil without Redis
	journal  *execution.Journal
	sim      *execution.Simulator
	prices   *portfolio.PriceBook
	notifier notification.Notifier
	prom     *metrics.Metrics
	health   *metrics.HealthStatus
	svc      *signalbot.Service
}

// appOptions select what newApp wires for a command.
type appOptions struct {
	journal   bool
	publisher signalbot.Publisher // nil when nothing listens for decisions

	// oneShot detaches settings from the YAML file and Redis mirror after
	// loading, so overrides such as profile never reach persisted config.
	oneShot bool
	profile string
}

// oneShotSettings returns an in-memory store seeded from base with the
// profile override applied. Nothing it holds is written back.
func oneShotSettings(base settings.Settings, profile string) *settings.Store {
	if profile != "" {
		base.Profile = profile
	}
	return settings.NewStore(base)
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg := config.Load(envFile)
	logger.Init("signalbot", logger.ParseLevel(cfg.LogLevel))

	path := settingsPath
	if path == "" {
		path = cfg.SettingsPath
	}
	initial, err := settings.LoadFile(path)
	if err != nil {
		slog.Warn("settings file unusable, using defaults", "path", path, "error", err)
	}

	a := &app{
		cfg:      cfg,
		settings: settings.NewStore(initial).WithFile(path),
		prices:   portfolio.NewPriceBook(),
		prom:     metrics.NewMetrics(prometheus.DefaultRegisterer),
		health:   metrics.NewHealthStatus(),
	}

	if cfg.RedisAddr != "" {
		rs, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			slog.Warn("redis unavailable, continuing without it", "error", err)
		} else {
			a.redis = rs
			a.health.SetRedisEnabled(true)
			rs.Breaker().OnStateChange = func(from, to redisstore.State) {
				a.prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					a.prom.RedisCircuitBreakerTrips.Inc()
				}
				slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
			}
			a.settings.WithKV(rs, settings.DefaultKey)
			if ok, err := a.settings.Restore(ctx); err != nil {
				slog.Warn("settings restore failed", "error", err)
			} else if ok {
				slog.Info("using settings mirrored in redis")
			}
		}
	}

	if opts.oneShot {
		a.settings = oneShotSettings(a.settings.Snapshot(), opts.profile)
	}

	if opts.journal {
		if dir := filepath.Dir(cfg.JournalPath); dir != "" {
			os.MkdirAll(dir, 0o755)
		}
		j, err := execution.NewJournal(cfg.JournalPath)
		if err != nil {
			slog.Warn("paper journal unavailable", "path", cfg.JournalPath, "error", err)
		} else {
			a.journal = j
		}
	}

	a.sim = execution.NewSimulator(a.settings.Snapshot().Paper.StartBalance)
	a.notifier = buildNotifier(cfg)

	var cache marketdata.Cache
	if a.redis != nil {
		cache = a.redis
	}
	deps := signalbot.Deps{
		Settings:  a.settings,
		Bars:      marketdata.NewBinanceClient(cfg.ExchangeBaseURL),
		Dominance: marketdata.NewCoinGecko(cfg.CoinGeckoBaseURL, cache),
		Sim:       a.sim,
		Prices:    a.prices,
		Notifier:  a.notifier,
		Metrics:   a.prom,
		Health:    a.health,
		Publisher: opts.publisher,
	}
	if a.journal != nil {
		deps.Journal = a.journal
	}
	a.svc, err = signalbot.New(deps)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var fan notification.Fanout
	if cfg.TelegramEnabled() {
		fan = append(fan, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		fan = append(fan, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	switch len(fan) {
	case 0:
		slog.Info("no delivery channel configured, reports go to the log")
		return notification.NewLogNotifier()
	case 1:
		return fan[0]
	default:
		return fan
	}
}

func (a *app) close() {
	if a.journal != nil {
		a.journal.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the signal loop with the HTTP gateway and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			hub := gateway.NewHub()
			a, err := newApp(ctx, appOptions{journal: true, publisher: hub})
			if err != nil {
				return err
			}
			defer a.close()
			return a.run(ctx, hub)
		},
	}
}

func (a *app) run(ctx context.Context, hub *gateway.Hub) error {
	start := time.Now()
	hub.OnClientsChanged = func(n int) { a.prom.WSClients.Set(float64(n)) }

	deps := gateway.Deps{
		Hub:    hub,
		Config: gateway.NewConfigStore(hub, a.settings),
		Ledger: a.sim,
		Prices: a.prices,
		Start:  start,
	}
	if a.journal != nil {
		deps.Trades = a.journal
	}
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, deps)
	httpSrv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("gateway listening", "addr", a.cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("gateway server error", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(a.cfg.MetricsAddr, a.health, nil)
	metricsSrv.Start()

	var redisProbe, sqliteProbe metrics.Pinger
	if a.redis != nil {
		redisProbe = a.redis
	}
	if a.journal != nil {
		sqliteProbe = a.journal
	}
	a.health.StartLivenessChecker(ctx, redisProbe, sqliteProbe, 15*time.Second)

	ads := broadcast.NewDispatcher(a.cfg.AdsPath, a.notifier, func() string {
		return a.settings.Snapshot().Signature
	})

	go a.svc.RunAds(ctx, ads, signalbot.AdsCheckInterval)
	err := a.svc.Run(ctx, ads)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func evaluateCmd() *cobra.Command {
	var (
		profile string
		notify  bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate SYMBOL...",
		Short: "Evaluate symbols once and print their reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, appOptions{oneShot: true, profile: profile})
			if err != nil {
				return err
			}
			defer a.close()

			sig := a.settings.Snapshot().Signature

			var failed int
			for _, sym := range args {
				sym = strings.ToUpper(strings.TrimSpace(sym))
				b, err := a.svc.Evaluate(ctx, sym)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", sym, err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.WithSignature(report.Format(&b), sig))
				fmt.Fprintln(cmd.OutOrStdout())
				if notify {
					a.svc.Notify(ctx, &b, sig)
				}
			}
			if failed == len(args) {
				return fmt.Errorf("no symbol could be evaluated")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "override the settings profile (scalp, intraday, swing)")
	cmd.Flags().BoolVar(&notify, "notify", false, "also deliver each report through the configured channel")
	return cmd
}
