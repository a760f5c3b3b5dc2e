package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-vision-predictor/internal/app"
	"github.com/samvad-hq/samvad-vision-predictor/internal/config"
	"github.com/samvad-hq/samvad-vision-predictor/internal/customvision"
	"github.com/samvad-hq/samvad-vision-predictor/internal/logger"
	"github.com/spf13/pflag"
)

// Exit codes by failure class.
const (
	exitFailure      = 1
	exitConnectivity = 3
	exitAPI          = 4
	exitMalformed    = 5
	exitInterrupted  = 130
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "predictor failed: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("predictor starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	predictor, err := app.NewPredictor(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize predictor", "error", err)
		return err
	}
	defer predictor.Close()

	return predictor.Run(ctx)
}

func exitCode(err error) int {
	var (
		connErr      *customvision.ConnectivityError
		apiErr       *customvision.APIError
		malformedErr *customvision.MalformedPayloadError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &connErr):
		return exitConnectivity
	case errors.As(err, &apiErr):
		return exitAPI
	case errors.As(err, &malformedErr):
		return exitMalformed
	default:
		return exitFailure
	}
}
