// Package main is the entry point for the interactive shadow viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/logger"
	"github.com/Faultbox/umbra/internal/viewer"
	"github.com/Faultbox/umbra/internal/world"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Umbra viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	scene, demo, err := world.LoadOrDemo(cfg.Scene.Path)
	if err != nil {
		logger.Error("failed to load scene", zap.String("path", cfg.Scene.Path), zap.Error(err))
		os.Exit(1)
	}
	if demo {
		logger.Info("scene not found, using demo scene", zap.String("path", cfg.Scene.Path))
	}

	v, err := viewer.New(cfg, scene)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
