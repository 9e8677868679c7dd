package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spooky-finn/go-bitmex-orderbook/config"
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/spooky-finn/go-bitmex-orderbook/helpers"
	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
	promclient "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/prometheus"
	"github.com/spooky-finn/go-bitmex-orderbook/provider"
	"github.com/spooky-finn/go-bitmex-orderbook/provider/bitmex"
	"github.com/spooky-finn/go-bitmex-orderbook/rpc"
	"github.com/spooky-finn/go-bitmex-orderbook/usecase"
)

var logger = logging.New("main")

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Logging)

	symbol, err := domain.NewMarketSymbol(cfg.Feed.Symbol)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid symbol")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor := provider.NewConnectionSupervisor(provider.SupervisorConfig{
		Symbol:          symbol,
		Topics:          bitmex.Topics(symbol, cfg.Feed.SymbolTopics, cfg.Feed.GenericTopics),
		NewTransport:    bitmex.NewStreamClientFactory(cfg.Feed.Endpoint, cfg.Feed.Handshake),
		Backoff:         provider.NewBackoffPolicy(cfg.Supervisor.Backoff),
		ConnectAttempts: cfg.Supervisor.ConnectAttempts,
		ConnectInterval: cfg.Supervisor.ConnectInterval,
	})
	if err := supervisor.Start(ctx); err != nil {
		logger.Fatal().Err(err).Str("endpoint", cfg.Feed.Endpoint).Msg("failed to start feed")
	}
	defer supervisor.Close()

	publisher := usecase.NewSnapshotPublisher(supervisor, cfg.Book.Depth, cfg.Book.PublishInterval)
	go publisher.Run(ctx)
	svc := usecase.NewOrderBookService(supervisor, publisher)

	go func() {
		if err := promclient.StartPromClientServer(ctx, cfg.Server.MetricsAddr); err != nil {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		server := rpc.NewServer(svc, &rpc.ValidationServiceConfig{MaxDepth: cfg.Book.Depth})
		if err := rpc.Serve(ctx, cfg.Server.GRPCAddr, server); err != nil {
			logger.Error().Err(err).Msg("grpc server failed")
			stop()
		}
	}()

	go watchErrors(ctx, supervisor)

	select {
	case <-svc.Ready():
		snap := svc.Snapshot()
		bid, _ := snap.BestBid()
		ask, _ := snap.BestAsk()
		logger.Info().Str("symbol", symbol.String()).Float64("bid", bid).Float64("ask", ask).Msg("order book ready")
	case <-ctx.Done():
	}

	if cfg.DebugMode {
		go logTicks(ctx, svc)
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

func watchErrors(ctx context.Context, supervisor *provider.ConnectionSupervisor) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-supervisor.Errors():
			logger.Error().Err(err).Str("state", supervisor.State().String()).Msg("feed error")
		}
	}
}

// logTicks reports mid-price moves, alternating the wanted direction.
func logTicks(ctx context.Context, svc *usecase.OrderBookService) {
	waiter := usecase.NewTickWaiter(svc)
	upTick := true
	for ctx.Err() == nil {
		if ok, msg := waiter.Wait(ctx, 5*time.Second, upTick); ok {
			ratio, _ := svc.Ratio(1)
			view, _ := svc.LeveledView(1)
			logger.Debug().
				Bool("up_tick", upTick).
				Float64("ratio", ratio).
				Str("top", helpers.ToJsonString(view)).
				Msg(msg)
		}
		upTick = !upTick
	}
}
