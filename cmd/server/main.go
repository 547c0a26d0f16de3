// Package main is the entry point for the blog backend.
//
// main stays small: load config, build the logger and the media host, then
// hand everything to internal/server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jenilmangukiya/blog-backend/internal/config"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Media is optional: without a bucket the server starts, but uploads
	// (avatars, blog thumbnails) fail with 500.
	var host media.Host = media.Unavailable{}
	if cfg.Media.Bucket == "" {
		logger.Warn("no media bucket configured, uploads are disabled")
	} else {
		s3Host, err := media.NewS3(ctx, media.S3Config{
			Endpoint:      cfg.Media.Endpoint,
			Region:        cfg.Media.Region,
			Bucket:        cfg.Media.Bucket,
			AccessKey:     cfg.Media.AccessKey,
			SecretKey:     cfg.Media.SecretKey,
			UsePathStyle:  cfg.Media.UsePathStyle,
			PublicBaseURL: cfg.Media.PublicBaseURL,
			Folder:        cfg.Media.Folder,
			MaxBytes:      cfg.Media.MaxUploadBytes,
		})
		if err != nil {
			logger.Error("failed to create media host", slog.String("error", err.Error()))
			os.Exit(1)
		}
		host = s3Host
	}

	srv, err := server.New(cfg, logger, host)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Bootstrap(ctx); err != nil {
		logger.Error("failed to bootstrap", slog.String("error", err.Error()))
		srv.Close()
		os.Exit(1)
	}
	cancel()

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
