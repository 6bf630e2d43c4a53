/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/trading-client/internal/bootstrap"
	"github.com/spf13/cobra"
)

// orderEventWorkerCmd represents the order event worker command
var orderEventWorkerCmd = &cobra.Command{
	Use:   "order-event-worker",
	Short: "Persist order lifecycle events",
	Long:  `The order event worker consumes the order_events stream and records fills and closed orders into the accounting database.`,
	Run:   bootstrap.StartOrderEventWorker,
}

func init() {
	rootCmd.AddCommand(orderEventWorkerCmd)
}
