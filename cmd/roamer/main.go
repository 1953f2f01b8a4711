// Package main is the robot entry point. It loads the configuration, builds
// the platform and control loop and runs until the operator ends the session
// or the process is interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"Roamer/internal/core"
	"Roamer/internal/model"
	"Roamer/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("c", model.DefaultConfigPath(), "path to configuration file")
	flag.Parse()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		util.Error("failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	util.SetupLogger(cfg.Robot.LogLevel, cfg.Robot.LogFormat)
	util.Info("using config", "component", "main", "path", *cfgPath, "platform", cfg.Robot.Platform)

	sys, err := core.NewSystem(cfg, nil)
	if err != nil {
		util.Error("failed to create system", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sys.StartAll(ctx); err != nil {
		util.Error("failed to start system", "err", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
		util.Info("shutting down system", "component", "main")
	case err := <-sys.Done():
		if err != nil {
			util.Error("control loop failed", "err", err)
		}
	}
	sys.StopAll()
	util.Info("system stopped cleanly", "component", "main")
}
