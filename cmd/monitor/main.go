// Package main is the operator monitor. It reads the robot's link, records
// and republishes telemetry over HTTP and websocket and forwards operator
// commands to the robot.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
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
	dev := flag.String("dev", "", "robot link device, overrides monitor.link.device")
	addr := flag.String("addr", "", "listen address, overrides monitor.addr")
	flag.Parse()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		util.Error("failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	util.SetupLogger(cfg.Robot.LogLevel, cfg.Robot.LogFormat)
	if *dev != "" {
		cfg.Monitor.Link.Device = *dev
	}
	if *addr != "" {
		cfg.Monitor.Addr = *addr
	}
	if cfg.Monitor.Link.Device == "" {
		util.Error("no robot link configured (monitor.link.device or -dev)")
		os.Exit(1)
	}

	link, err := device.NewSerialDevice(cfg.Monitor.Link.Device, cfg.Monitor.Link.Baud)
	if err != nil {
		util.Error("failed to open robot link", "err", err)
		os.Exit(1)
	}

	web, err := app.NewApp(cfg.Monitor, nil)
	if err != nil {
		_ = link.Close()
		util.Error("failed to create app", "err", err)
		os.Exit(1)
	}
	bridge := core.NewBridge(link, web)
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
		stop()
	}()

	<-ctx.Done()
	util.Info("shutting down monitor", "component", "main")
	web.Stop()
	_ = link.Close()
}
