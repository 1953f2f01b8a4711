// Package main runs the robot on the simulated platform together with the
// monitor in one process. The two ends talk over an in-memory link, or over
// a socat pty pair with -pty so external tools can watch the traffic.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"Roamer/internal/app"
	"Roamer/internal/core"
	"Roamer/internal/device"
	"Roamer/internal/model"
	"Roamer/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("c", model.DefaultConfigPath(), "path to configuration file")
	pty := flag.Bool("pty", false, "connect robot and monitor through a socat pty pair")
	explore := flag.Bool("explore", false, "start exploring right away")
	flag.Parse()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		util.Error("failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	util.SetupLogger(cfg.Robot.LogLevel, cfg.Robot.LogFormat)
	cfg.Robot.Platform = model.PlatformSim

	var robotEnd, monitorEnd core.StreamDevice
	socat := util.NewSocatManager()
	defer socat.Cleanup()
	if *pty {
		dir, err := os.MkdirTemp("", "roamer-pty")
		if err != nil {
			util.Error("failed to create pty dir", "err", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		left, right := filepath.Join(dir, "robot"), filepath.Join(dir, "monitor")
		if err := socat.CreatePair(left, right); err != nil {
			util.Error("failed to create pty pair", "err", err)
			os.Exit(1)
		}
		if robotEnd, err = device.NewSerialDevice(left, cfg.Link.Baud); err != nil {
			util.Error("failed to open robot pty", "err", err)
			os.Exit(1)
		}
		if monitorEnd, err = device.NewSerialDevice(right, cfg.Link.Baud); err != nil {
			util.Error("failed to open monitor pty", "err", err)
			os.Exit(1)
		}
		util.Info("pty pair ready", "component", "main", "robot", left, "monitor", right)
	} else {
		robotEnd, monitorEnd = device.NewPipe()
	}

	sys, err := core.NewSystem(cfg, robotEnd)
	if err != nil {
		util.Error("failed to create system", "err", err)
		os.Exit(1)
	}
	web, err := app.NewApp(cfg.Monitor, nil)
	if err != nil {
		util.Error("failed to create app", "err", err)
		os.Exit(1)
	}
	bridge := core.NewBridge(monitorEnd, web)
	web.SetCommander(bridge)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := web.Start(cfg.Monitor.Addr); err != nil {
			util.Error("web server failed", "err", err)
			stop()
		}
	}()
	go func() {
		if err := bridge.Run(ctx); err != nil {
			util.Error("robot link failed", "err", err)
		}
	}()
	if err := sys.StartAll(ctx); err != nil {
		util.Error("failed to start system", "err", err)
		os.Exit(1)
	}
	if *explore {
		if err := bridge.Send(model.ControlCommand{Op: 'a'}); err != nil {
			util.Warn("failed to start exploring", "err", err)
		}
	}

	select {
	case <-ctx.Done():
	case <-sys.Done():
	}
	util.Info("shutting down simulation", "component", "main")
	sys.StopAll()
	web.Stop()
	_ = monitorEnd.Close()
}
