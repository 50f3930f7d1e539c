// Command auth runs the clubfig authentication service.
package main

import (
	"log/slog"
	"os"

	"github.com/clubfig/clubfig/internal/auth/app"
)

func main() {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		slog.Error("failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("auth service stopped with error", "error", err)
		os.Exit(1)
	}
}
