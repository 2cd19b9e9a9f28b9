// Package main runs the lighting pipeline headless over a scene and logs
// what every frame rendered.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/bench"
	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/logger"
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

	logger.Info("=== Umbra shadow bench ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	scene, demo, err := world.LoadOrDemo(cfg.Scene.Path)
	if err != nil {
		logger.Error("failed to load scene", zap.String("path", cfg.Scene.Path), zap.Error(err))
		os.Exit(1)
	}
	if demo {
		logger.Info("scene not found, using demo scene", zap.String("path", cfg.Scene.Path))
	}

	report, err := bench.Run(bench.Options{
		Config: cfg,
		Scene:  scene,
		Frames: cfg.Scene.Frames,
	})
	if err != nil {
		logger.Error("bench failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("bench finished", report.Fields()...)
	if report.Leaked != 0 {
		logger.Warn("resources leaked", zap.Int("count", report.Leaked))
		os.Exit(1)
	}
}
