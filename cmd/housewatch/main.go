// cmd/housewatch/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "housewatch",
	Short:         "UPS and water leak alerts to a Discord webhook",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Watch the UPS status through upsd",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd.Context(), pipelinePower)
	},
}

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Watch radio leak sensors through rtl_433",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd.Context(), pipelineSensor)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every enabled pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipelines(cmd.Context(), pipelineAll)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show alerts recorded in the journal",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of alerts to show")
	historyCmd.Flags().StringVar(&historyPipeline, "pipeline", "", "only show alerts from this pipeline (power or sensor)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show alerts that were not delivered")

	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(sensorCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
