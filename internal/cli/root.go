package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sentiment-alpha/internal/config"
	"sentiment-alpha/internal/domain"
	"sentiment-alpha/internal/logging"
)

// Service is the part of the signal service the commands drive.
type Service interface {
	RunOnce(ctx context.Context) (*domain.CycleResult, error)
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error)
}

// Runtime is what a command needs once configuration is loaded.
type Runtime struct {
	Service Service
	Migrate func(ctx context.Context) error
	// UpsertCandles writes candles, overwriting OHLCV of existing keys.
	UpsertCandles func(ctx context.Context, candles []domain.Candle) error
	Close         func()
}

// Opener connects the runtime for a loaded configuration.
type Opener func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Runtime, error)

type app struct {
	open     Opener
	cfgFile  string
	logLevel string
	rt       *Runtime
}

// NewRootCmd builds the signalctl command tree.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "signalctl",
		Short:         "Run and inspect sentiment alpha signal cycles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.rt != nil {
				return nil
			}
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			logger := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())

			rt, err := a.open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			a.rt = rt
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.rt != nil && a.rt.Close != nil {
				a.rt.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log level defined in config")

	root.AddCommand(newComputeCmd(a))
	root.AddCommand(newSignalsCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newImportCandlesCmd(a))
	return root
}

// Execute runs signalctl against the real database.
func Execute() {
	if err := NewRootCmd(OpenRuntime).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) runtime() (*Runtime, error) {
	if a.rt == nil || a.rt.Service == nil {
		return nil, errors.New("runtime not initialized")
	}
	return a.rt, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
