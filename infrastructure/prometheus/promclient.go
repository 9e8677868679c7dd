package promclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
)

var logger = logging.New("promclient")

var UpdatesPerSecondGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "bitmex_updates_per_second",
		Help: "feed messages applied per second, recomputed every rate window",
	},
)

var BookLevelsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bitmex_book_levels",
		Help: "levels held in the published snapshot",
	},
	[]string{"side"},
)

var ReconnectsCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitmex_ws_reconnects_total",
		Help: "websocket sessions re-established after a failure",
	},
)

var ProtocolViolationsCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitmex_protocol_violations_total",
		Help: "sessions torn down because the local mirror diverged",
	},
)

var DroppedMessagesCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitmex_dropped_messages_total",
		Help: "frames dropped as malformed or received before their partial",
	},
)

var SupervisorStateGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "bitmex_supervisor_state",
		Help: "0 connecting, 1 connected, 2 backoff, 3 exited",
	},
)

var BookCrossedCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitmex_book_crossed_total",
		Help: "published snapshots whose best bid was above the best ask",
	},
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(UpdatesPerSecondGauge)
	reg.MustRegister(BookLevelsGauge)
	reg.MustRegister(ReconnectsCounter)
	reg.MustRegister(ProtocolViolationsCounter)
	reg.MustRegister(DroppedMessagesCounter)
	reg.MustRegister(SupervisorStateGauge)
	reg.MustRegister(BookCrossedCounter)
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// StartPromClientServer serves /metrics on addr until ctx is done.
func StartPromClientServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(NewRegistry()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("prometheus server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
