package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/promptkeep/internal/infrastructure/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.Options{
		Verbose:  envEnabled("PROMPTKEEP_DEBUG"),
		JSONLogs: envEnabled("PROMPTKEEP_LOG_JSON"),
	}

	root := cli.NewRootCmd(opts)
	if err := root.ExecuteContext(ctx); err != nil {
		code := cli.RenderError(os.Stderr, err)
		stop()
		os.Exit(code)
	}
}

func envEnabled(key string) bool {
	v := os.Getenv(key)
	return strings.EqualFold(v, "1") || strings.EqualFold(v, "true")
}
