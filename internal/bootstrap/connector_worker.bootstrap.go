package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/krobus00/trading-client/internal/config"
	"github.com/krobus00/trading-client/internal/entity"
	connectorHTTP "github.com/krobus00/trading-client/internal/handler/connector/http"
	"github.com/krobus00/trading-client/internal/infrastructure"
	"github.com/krobus00/trading-client/internal/service/connector"
	"github.com/krobus00/trading-client/internal/service/eventsink"
	"github.com/krobus00/trading-client/internal/service/exchange"
	"github.com/krobus00/trading-client/internal/service/reconciler"
	"github.com/krobus00/trading-client/internal/service/userstream"
	"github.com/krobus00/trading-client/internal/snapshot"
	"github.com/krobus00/trading-client/internal/tracker"
	"github.com/krobus00/trading-client/internal/util"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// StartConnectorWorker runs one connector: the order tracker, both
// reconciliation pollers, the user-stream listener when configured, and the
// ops HTTP gateway.
func StartConnectorWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exchangeName, _ := cmd.Flags().GetString("exchange")

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	orderStore, err := snapshot.NewRedisOrderStore(config.Env.Redis["order_tracker"].CacheDSN, exchangeName)
	util.ContinueOrFatal(err)

	paperExchange := exchange.NewPaperExchange(decimal.NewFromFloat(0.1))

	ex, ok := exchange.GetExchange(entity.ExchangeName(exchangeName))
	if !ok {
		logrus.Fatalf("exchange not registered: %s", exchangeName)
	}

	jetStreamSink := eventsink.NewJetStreamSink(js)
	err = jetStreamSink.JetstreamEventInit(ctx)
	util.ContinueOrFatal(err)

	sink := eventsink.NewFanout(eventsink.NewLogSink(), jetStreamSink)

	orderTracker := tracker.New(tracker.Config{
		Exchange:            exchangeName,
		LostOrderCountLimit: config.Env.Tracker.LostOrderCountLimit,
		MaxCachedOrders:     config.Env.Tracker.MaxCachedOrders,
		CachedOrderTTL:      config.Env.Tracker.CachedOrderTTL,
		TradeFillsAvailable: ex.TradeFillsAvailable(),
	}, sink, orderStore)

	paperExchange.SetConsumer(orderTracker)

	snapshots, err := orderStore.LoadAll(ctx)
	util.ContinueOrFatal(err)
	err = orderTracker.RestoreTracking(ctx, snapshots)
	util.ContinueOrFatal(err)

	exchangeConfig := config.Env.Exchanges[exchangeName]

	statusSync := reconciler.NewStatusSyncService(ex, orderTracker, exchangeConfig.StatusPoll)
	fillSync := reconciler.NewFillSyncService(ex, orderTracker, exchangeConfig.FillPoll)
	go statusSync.Run(ctx)
	go fillSync.Run(ctx)

	if exchangeConfig.UserStreamURL != "" {
		listener := userstream.NewListener(exchangeConfig.UserStreamURL, nil, ex)
		go listener.Run(ctx)
	}

	connectorService := connector.NewService(ex, orderTracker)

	connectorHandler := connectorHTTP.NewConnectorHTTPHandler(connectorService, orderTracker)
	httpMux := http.NewServeMux()
	connectorHandler.Register(httpMux)

	httpPort := fmt.Sprintf(":%s", config.Env.Port["connector_http"])
	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            httpPort,
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
	}, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpPort))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"pollers and user stream": func(ctx context.Context) error {
			cancel()
			return nil
		},
		"order snapshot store": func(ctx context.Context) error {
			return orderStore.Close()
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
