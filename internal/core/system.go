package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Roamer/internal/calib"
	"Roamer/internal/device"
	"Roamer/internal/model"
	"Roamer/internal/platform/gopigo"
	"Roamer/internal/platform/serialbase"
	"Roamer/internal/platform/sim"
	"Roamer/internal/util"
)

// System manages the lifecycle of the robot-side components built from a
// configuration: the platform back-end, the operator link and the control loop.
type System struct {
	cfg   *model.Config
	Robot *Robot
	World *sim.World // set on the sim platform

	background []func(ctx context.Context) error
	closers    []func() error

	started   bool
	startLock sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan error
}

// NewSystem builds the platform named in cfg.Robot.Platform and a Robot on
// top of it. When link is nil and cfg.Link.Device is set, the serial link is
// opened; with neither the robot runs without an operator.
func NewSystem(cfg *model.Config, link device.Device) (*System, error) {
	s := &System{cfg: cfg}

	var (
		base device.Base
		head device.Scanner
	)
	switch cfg.Robot.Platform {
	case model.PlatformSim:
		w := sim.New(cfg.Sim)
		s.World = w
		base, head = w, w
	case model.PlatformSerial:
		b, err := serialbase.Open(cfg.Base.Device, cfg.Base.Baud)
		if err != nil {
			return nil, err
		}
		base = b
		s.background = append(s.background, b.Run)
		s.closers = append(s.closers, b.Close)
	case model.PlatformGoPiGo:
		g, err := gopigo.Open(gopigo.Config{
			WheelDiameter: cfg.GoPiGo.WheelDiameter,
			WheelBase:     cfg.GoPiGo.WheelBase,
			IRPin:         cfg.GoPiGo.IRPin,
			ServoMin:      cfg.Calibration.ServoMinUs,
			ServoMax:      cfg.Calibration.ServoMaxUs,
		})
		if err != nil {
			return nil, err
		}
		base, head = g, g
		s.closers = append(s.closers, g.Close)
	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Robot.Platform)
	}

	if link == nil && cfg.Link.Device != "" {
		sd, err := device.NewSerialDevice(cfg.Link.Device, cfg.Link.Baud)
		if err != nil {
			s.close()
			return nil, err
		}
		link = sd
	}
	if link != nil {
		s.closers = append(s.closers, link.Close)
	}

	s.Robot = NewRobot(RobotOptions{
		ID:     cfg.Robot.ID,
		Base:   base,
		Head:   head,
		Link:   link,
		Tick:   time.Duration(cfg.Robot.TickMs) * time.Millisecond,
		Tuning: cfg.Motion,
		Curve:  calib.Curve{A: cfg.Calibration.IRA, B: cfg.Calibration.IRB},
		Seed:   cfg.Robot.Seed,
	})
	util.Info("system built", "component", "system", "platform", cfg.Robot.Platform, "link", link != nil)
	return s, nil
}

// StartAll starts the background readers and the control loop.
func (s *System) StartAll(ctx context.Context) error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, fn := range s.background {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := fn(ctx); err != nil {
				util.Error("background task stopped", "component", "system", "err", err)
			}
		}()
	}
	s.done = make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.done <- s.Robot.Run(ctx)
	}()
	s.started = true
	return nil
}

// Done delivers the control loop's result once it returns, e.g. after the
// operator sent the end opcode.
func (s *System) Done() <-chan error { return s.done }

// StopAll stops all running components and releases devices.
func (s *System) StopAll() {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		s.close()
		return
	}
	s.cancel()
	s.wg.Wait()
	s.close()
	s.started = false
}

func (s *System) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			util.Warn("close failed", "component", "system", "err", err)
		}
	}
	s.closers = nil
}
