package main

import (
	"context"
	"log/slog"
	"os"

	"cfszone_connect/magic_idp/internal/config"
	"cfszone_connect/magic_idp/internal/mailer"
	"cfszone_connect/magic_idp/internal/server"
	"cfszone_connect/magic_idp/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	router, err := server.New(context.Background(), cfg, st, mailer.LogMailer{})
	if err != nil {
		slog.Error("assemble server", "error", err)
		os.Exit(1)
	}

	slog.Info("listening", "addr", cfg.ListenAddr(), "title", cfg.Title)
	if err := router.Run(cfg.ListenAddr()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
