package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/istina-lab/adis/internal/cli"
	"github.com/istina-lab/adis/internal/config"
	"github.com/istina-lab/adis/internal/engine"
	"github.com/istina-lab/adis/internal/score"
)

// Exit codes: 0 success, 2 config error, 3 data contradiction, 130
// cancelled.
const (
	exitConfig        = 2
	exitContradiction = 3
	exitCancelled     = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "adis:", err)

	switch {
	case errors.Is(err, context.Canceled):
		os.Exit(exitCancelled)
	case errors.Is(err, engine.ErrContradiction):
		os.Exit(exitContradiction)
	case errors.Is(err, config.ErrConfig),
		errors.Is(err, score.ErrMUIncomplete),
		errors.Is(err, score.ErrWeights):
		os.Exit(exitConfig)
	}
	os.Exit(1)
}
