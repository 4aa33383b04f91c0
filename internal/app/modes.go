package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkathuria/bulliond/internal/domain"
	"github.com/rkathuria/bulliond/internal/feed"
	"github.com/rkathuria/bulliond/internal/gateway"
	"github.com/rkathuria/bulliond/internal/news"
	"github.com/rkathuria/bulliond/internal/notify"
	"github.com/rkathuria/bulliond/internal/platform/bullion"
	"github.com/rkathuria/bulliond/internal/server"
	"github.com/rkathuria/bulliond/internal/server/handler"
	"github.com/rkathuria/bulliond/internal/server/ws"
	"github.com/rkathuria/bulliond/internal/service"
	"github.com/rkathuria/bulliond/internal/tracker"
)

// trackerStack bundles the components of one running position tracker.
type trackerStack struct {
	trk     *tracker.Tracker
	monitor *feed.Monitor
	board   *notify.Board
}

// ServerMode hosts the gateway HTTP API: live rate, trade book, headlines,
// and the WebSocket hub. No positions are tracked in this process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startGatewayServer(ctx, g, deps, hub, nil)
	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// TrackMode runs the position tracker against a remote gateway. The tracker
// polls the gateway's price endpoint and opens/closes positions through its
// trade endpoints.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode",
		slog.String("gateway", a.cfg.Gateway.BaseURL),
	)

	g, ctx := errgroup.WithContext(ctx)

	ts := a.buildTrackerStack(ctx, deps, a.cfg.Gateway.BaseURL, nil)
	a.closers = append(a.closers, ts.board.Close)

	g.Go(func() error {
		return ts.monitor.Run(ctx)
	})

	return g.Wait()
}

// FullMode hosts the gateway API and runs the tracker against it in the same
// process. Tracker control endpoints are registered on the HTTP server and
// price ticks are pushed to WebSocket clients.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	localURL := fmt.Sprintf("http://127.0.0.1:%d", a.cfg.Server.Port)
	ts := a.buildTrackerStack(ctx, deps, localURL, func(sample domain.PriceSample) {
		hub.Broadcast("price_tick", sample)
	})
	a.closers = append(a.closers, ts.board.Close)

	trackerH := handler.NewTrackerHandler(ts.trk, ts.monitor, ts.board, a.logger)
	a.startGatewayServer(ctx, g, deps, hub, trackerH)
	a.startArchiveLoop(ctx, g, deps)

	// Give the HTTP server a moment to bind before the first poll hits it.
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
		return ts.monitor.Run(ctx)
	})

	return g.Wait()
}

// buildTrackerStack assembles the tracker, its ledger, the notification board,
// and the polling monitor, all pointed at the gateway under gatewayURL.
func (a *App) buildTrackerStack(
	ctx context.Context,
	deps *Dependencies,
	gatewayURL string,
	onSample func(domain.PriceSample),
) *trackerStack {
	board := notify.NewBoard(a.cfg.Tracker.NotificationCap, a.cfg.Tracker.NotificationTTL.Duration)
	sink := notify.NewSink(board, deps.Notifier, a.logger)

	ledger := tracker.NewLedger()
	gw := gateway.NewClient(gatewayURL, a.cfg.Gateway.Timeout.Duration)
	trk := tracker.New(gw, ledger, sink, a.logger)

	sampleHook := onSample
	if a.cfg.Tracker.AutoOpen {
		var once sync.Once
		target := a.cfg.Tracker.ProfitTarget
		limit := a.cfg.Tracker.LossLimit
		sampleHook = func(sample domain.PriceSample) {
			once.Do(func() {
				if _, err := trk.Open(ctx, sample.Value, target, limit); err != nil {
					a.logger.WarnContext(ctx, "auto-open failed",
						slog.Float64("price", sample.Value),
						slog.String("error", err.Error()),
					)
				}
			})
			if onSample != nil {
				onSample(sample)
			}
		}
	}

	feedClient := feed.NewClient(gatewayURL, a.cfg.Gateway.Timeout.Duration)
	monitor := feed.NewMonitor(
		feedClient, gw, trk, ledger, sink,
		a.cfg.Tracker.PollInterval.Duration,
		sampleHook, a.logger,
	)

	return &trackerStack{trk: trk, monitor: monitor, board: board}
}

// startGatewayServer assembles the HTTP API handlers and adds the server
// goroutines to the errgroup. trackerH is optional; when non-nil the tracker
// control routes are registered.
func (a *App) startGatewayServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	hub *ws.Hub,
	trackerH *handler.TrackerHandler,
) {
	scraper := bullion.NewScraper(
		a.cfg.Feed.SourceURL,
		a.cfg.Feed.RateSelector,
		a.cfg.Feed.ScrapeTimeout.Duration,
	)
	priceSvc := service.NewPriceService(
		a.cfg.Feed.Symbol, scraper, deps.PriceCache,
		a.cfg.Feed.CacheTTL.Duration, hub, a.logger,
	)
	tradeSvc := service.NewTradeService(deps.TradeStore, hub, a.logger)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Price:   handler.NewPriceHandler(priceSvc, a.logger),
		Trades:  handler.NewTradeHandler(tradeSvc, a.logger),
		Tracker: trackerH,
	}

	if a.cfg.News.APIKey != "" {
		newsSvc := news.NewService(
			a.cfg.News.BaseURL, a.cfg.News.APIKey,
			a.cfg.News.Query, a.cfg.News.Limit,
			15*time.Second,
		)
		handlers.News = handler.NewNewsHandler(newsSvc, a.logger)
	} else {
		a.logger.InfoContext(ctx, "news api key not set, /news disabled")
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop periodically moves closed trades older than the retention
// window to cold storage.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled || deps.Archiver == nil {
		return
	}

	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				count, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "trade archival failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if count > 0 {
					a.logger.InfoContext(ctx, "archived closed trades",
						slog.Int64("count", count),
						slog.Time("cutoff", cutoff),
					)
				}
			}
		}
	})
}
