package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hjyangBig2/lighter/internal/app"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// embeddedConfig is the application configuration bundled into the binary.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	// DB_ADAPTORS selects the database providers, e.g. "postgres,sqlite".
	adaptors := os.Getenv("DB_ADAPTORS")
	if adaptors == "" {
		adaptors = "postgres,mysql,sqlite"
	}

	if err := app.RunApplication(ctx, envFilePath, embeddedConfig, app.DBProviderOptions(adaptors)); err != nil {
		logger.Fatalf("Lighter session service failed: %v", err)
	}
}
