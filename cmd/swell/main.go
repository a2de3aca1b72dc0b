package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/tigerroll/swell/internal/app"
	config "github.com/tigerroll/swell/internal/core/config"
)

// embeddedConfig holds the content of the application's YAML configuration.
//
//go:embed resources/config.yaml
var embeddedConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envFilePath := os.Getenv("SWELL_ENV_FILE")

	app.RunApplication(ctx, envFilePath, config.EmbeddedConfig(embeddedConfig))
}
