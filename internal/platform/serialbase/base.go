// Package serialbase talks to a drive base microcontroller (an Arduino or a
// Create-style base bridge) over a serial line. The base streams "O" odometry
// lines at its own rate and accepts "W" wheel speed lines; see package parser
// for the formats.
package serialbase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"Roamer/internal/device"
	"Roamer/internal/parser"
	"Roamer/internal/util"
)

// neutralCliff is reported until the base sends its first odometry line.
const neutralCliff = 1500

// Base implements device.Base. Motion deltas from every odometry line are
// summed until the next Poll; bumper and cliff levels are the latest seen.
type Base struct {
	link device.Device

	mu  sync.Mutex
	acc device.Snapshot
	err error

	log *slog.Logger
}

// New wraps an open link.
func New(link device.Device) *Base {
	b := &Base{link: link, log: util.With("component", "serial-base")}
	for i := range b.acc.Cliff {
		b.acc.Cliff[i] = neutralCliff
	}
	return b
}

// Open opens the serial device and wraps it.
func Open(dev string, baud int) (*Base, error) {
	sd, err := device.NewSerialDevice(dev, baud)
	if err != nil {
		return nil, fmt.Errorf("open drive base: %w", err)
	}
	return New(sd), nil
}

// Run reads odometry lines until ctx is cancelled or the link fails. Lines
// that are not odometry are logged at debug level and skipped.
func (b *Base) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = b.link.Close() })
	defer stop()

	for {
		line, err := b.link.ReadLine(0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, device.ErrReadTimeout) {
				continue
			}
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			return fmt.Errorf("read drive base: %w", err)
		}
		b.handle(line)
	}
}

func (b *Base) handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s, err := parser.ParseOdometryCSV(line)
	if err != nil {
		b.log.Debug("ignored line", "line", line, "err", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acc.Distance += s.Distance
	b.acc.Angle += s.Angle
	b.acc.BumpLeft = s.BumpLeft
	b.acc.BumpRight = s.BumpRight
	b.acc.Cliff = s.Cliff
}

// Poll implements device.Base. It returns the accumulated deltas and resets
// them. Once the reader has failed every Poll returns its error.
func (b *Base) Poll() (device.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return device.Snapshot{Cliff: b.acc.Cliff}, b.err
	}
	s := b.acc
	b.acc.Distance, b.acc.Angle = 0, 0
	return s, nil
}

// SetWheels implements device.Wheels.
func (b *Base) SetWheels(left, right float64) error {
	if err := b.link.WriteLine(parser.EncodeWheels(left, right)); err != nil {
		return fmt.Errorf("write wheels: %w", err)
	}
	return nil
}

// Close closes the link.
func (b *Base) Close() error { return b.link.Close() }

// Emulate plays the drive base side of the protocol against a link, for bench
// tests without hardware: it integrates the last wheel command and reports
// odometry every period. It returns when ctx is cancelled.
func Emulate(ctx context.Context, link device.Device, period time.Duration, track float64) error {
	log := util.With("component", "base-emulator")
	var (
		mu          sync.Mutex
		left, right float64
	)
	go func() {
		for ctx.Err() == nil {
			line, err := link.ReadLine(period)
			if err != nil {
				if !errors.Is(err, device.ErrReadTimeout) {
					time.Sleep(period)
				}
				continue
			}
			l, r, err := parser.ParseWheelsCSV(line)
			if err != nil {
				log.Debug("ignored line", "line", strings.TrimSpace(line))
				continue
			}
			mu.Lock()
			left, right = l, r
			mu.Unlock()
		}
	}()

	t := time.NewTicker(period)
	defer t.Stop()
	dt := period.Seconds()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		mu.Lock()
		s := device.Snapshot{
			Distance: (left + right) / 2 * dt,
			Angle:    (right - left) / track * dt * 180 / math.Pi,
			Cliff:    [device.CliffSensors]int{neutralCliff, neutralCliff, neutralCliff, neutralCliff},
		}
		mu.Unlock()
		if err := link.WriteLine(parser.EncodeOdometry(s)); err != nil {
			return fmt.Errorf("write odometry: %w", err)
		}
	}
}
