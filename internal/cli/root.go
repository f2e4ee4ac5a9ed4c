package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/netclock/internal/config"
	"github.com/turtacn/netclock/internal/status"
	nerrors "github.com/turtacn/netclock/pkg/errors"
	"github.com/turtacn/netclock/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "netclock",
	Short:         "netclock: Wi-Fi bring-up, NTP time sync and a 12-hour clock face",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bring the network up, sync time and run the clock",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger.InitLogger(cfg.Observability.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := Run(ctx, cfg, cmd.OutOrStdout()); err != nil {
			logger.Log.Error("netclock fatal error", "err", err)
			return err
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of a running netclock",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		snap, err := status.Query(cfg.Status.SocketPath, 2*time.Second)
		if err != nil {
			return fmt.Errorf("query %s: %w", cfg.Status.SocketPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "device:   %s\n", snap.Device)
		fmt.Fprintf(cmd.OutOrStdout(), "boot id:  %s\n", snap.BootID)
		fmt.Fprintf(cmd.OutOrStdout(), "phase:    %s\n", snap.Phase)
		fmt.Fprintf(cmd.OutOrStdout(), "link:     %s\n", snap.Link)
		fmt.Fprintf(cmd.OutOrStdout(), "signal:   %t\n", snap.Signal)
		if snap.Address != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "address:  %s\n", snap.Address)
		}
		if snap.Sync != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "sync:     %s after %d attempts (%s)\n", snap.Sync, snap.Attempts, snap.SyncTime)
		}
		if snap.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "error:    %s\n", snap.Error)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a config file without starting",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: ssid=%s driver=%s server=%s\n",
			cfg.WiFi.SSID, cfg.Link.Driver, cfg.TimeSync.Server)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "netclock.yaml", "config file path")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
}

// Execute runs the command line stamped with version.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

// Exit statuses. Anything not listed exits 1.
const (
	ExitConfig    = 2
	ExitBringUp   = 3
	ExitNoAddress = 4
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch code := nerrors.CodeOf(err); {
	case code == nerrors.ErrCodeConfigInvalid:
		return ExitConfig
	case code == nerrors.ErrCodeConnectTimeout:
		return ExitNoAddress
	case code >= nerrors.ErrCodeStackInit && code < nerrors.ErrCodeConnectTimeout:
		return ExitBringUp
	}
	return 1
}

// Personal.AI order the ending
