package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/metro-ticketing/internal/booking"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep the ticket ledger tidy.`,
}

var expiryWorkerCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Fail pending payments that were never settled",
	Long:  `Periodically move pending payments older than booking.pending_expiry to failed`,
	Run: func(cmd *cobra.Command, args []string) {
		startExpiryWorker()
	},
}

var (
	sweepInterval time.Duration
	sweepOnce     bool
)

type expirer interface {
	ExpireStalePayments(ctx context.Context) (int, error)
}

var _ expirer = (*booking.Service)(nil)

func startExpiryWorker() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	interval := getDurationFlag(sweepInterval, deps.Config.Booking.SweepInterval)
	deps.Logger.Info("starting expiry worker",
		"interval", interval,
		"pending_expiry", deps.Config.Booking.PendingExpiry,
		"checkout_expiry", deps.Config.Booking.CheckoutExpiry)

	if sweepOnce {
		sweep(ctx, deps, deps.Booking)
		return
	}
	runSweeps(ctx, deps, deps.Booking, interval)
	deps.Logger.Info("expiry worker stopped")
}

func runSweeps(ctx context.Context, deps *Dependencies, svc expirer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, deps, svc)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, deps, svc)
		}
	}
}

func sweep(ctx context.Context, deps *Dependencies, svc expirer) {
	n, err := svc.ExpireStalePayments(ctx)
	if err != nil && ctx.Err() == nil {
		deps.Logger.Error("expiry sweep failed", "expired", n, "error", err)
		return
	}
	if n > 0 {
		deps.Logger.Info("expiry sweep finished", "expired", n)
	}
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	expiryWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Time between sweeps (overrides config)")
	expiryWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "Run a single sweep and exit")

	workerCmd.AddCommand(expiryWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
