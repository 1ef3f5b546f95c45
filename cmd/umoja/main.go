package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MuganziJames/Umoja-AI/internal/app"
	"github.com/MuganziJames/Umoja-AI/internal/config"
	"github.com/MuganziJames/Umoja-AI/internal/logger"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}
	defer application.Close()

	root := newRootCommand(application)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
