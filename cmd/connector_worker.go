/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/trading-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// connectorWorkerCmd represents the connector worker command
var connectorWorkerCmd = &cobra.Command{
	Use:   "connector-worker",
	Short: "Run one exchange connector",
	Long:  `The connector worker tracks every order of one exchange, reconciles local state against REST polling and the websocket user stream, and publishes lifecycle events.`,
	Run:   bootstrap.StartConnectorWorker,
}

func init() {
	rootCmd.AddCommand(connectorWorkerCmd)
	connectorWorkerCmd.PersistentFlags().String("exchange", "paper", "exchange name")
}
