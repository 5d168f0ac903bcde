package main

import (
	"log/slog"
	"os"

	"github.com/Mohammed-Akramuddin/agegate/cmd"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("AGEGATE_DEBUG") != "" {
		level = slog.LevelDebug
	}

	// Set up logger
	logger := NewLogger(level)

	cmd.Execute(logger)
}
