package bootstrap

import (
	"context"

	"github.com/krobus00/trading-client/internal/config"
	"github.com/krobus00/trading-client/internal/infrastructure"
	"github.com/krobus00/trading-client/internal/repository"
	"github.com/krobus00/trading-client/internal/service/recorder"
	"github.com/krobus00/trading-client/internal/util"
	"github.com/spf13/cobra"
)

// StartOrderEventWorker consumes the order_events stream and persists fills
// and closed orders into the accounting database.
func StartOrderEventWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderTrackerDB, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["order_tracker"])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, orderTrackerDB, config.Env.Database["order_tracker"].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	fillJournalRepo := repository.NewFillJournalRepository(orderTrackerDB)
	orderRecordRepo := repository.NewOrderRecordRepository(orderTrackerDB)

	recorderService := recorder.NewOrderEventRecorderService(js, fillJournalRepo, orderRecordRepo)
	err = recorderService.JetstreamEventSubscribe(ctx)
	util.ContinueOrFatal(err)

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"order tracker database": func(ctx context.Context) error {
			cancel()
			return orderTrackerDB.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
