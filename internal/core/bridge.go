package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"Roamer/internal/device"
	"Roamer/internal/model"
	"Roamer/internal/parser"
	"Roamer/internal/telemetry"
	"Roamer/internal/util"
)

// StreamDevice is a link whose raw inbound stream can be read, needed to pick
// binary frames out of the text.
type StreamDevice interface {
	device.Device
	Reader() io.Reader
}

// Sink receives what the robot sends.
type Sink interface {
	OnTelemetry(t model.Telemetry)
	OnText(line string)
}

// Bridge is the monitor end of the robot link. It decodes the robot's stream
// for a Sink and forwards operator commands. Frames that omit the obstacle
// list are completed with the last list received.
type Bridge struct {
	link StreamDevice
	sink Sink

	mu      sync.Mutex
	objects []model.ObjectRecord
	now     func() time.Time

	log *slog.Logger
}

// NewBridge creates a bridge over link delivering to sink.
func NewBridge(link StreamDevice, sink Sink) *Bridge {
	return &Bridge{link: link, sink: sink, now: time.Now, log: util.With("component", "bridge")}
}

// Run reads the robot stream until ctx is cancelled or the link closes.
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = b.link.Close() })
	defer stop()

	sr := telemetry.NewStreamReader(b.link.Reader())
	for {
		msg, err := sr.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read robot stream: %w", err)
		}
		if msg.Frame == nil {
			if msg.Line != "" {
				b.sink.OnText(msg.Line)
			}
			continue
		}
		b.sink.OnTelemetry(b.complete(*msg.Frame))
	}
}

func (b *Bridge) complete(t model.Telemetry) model.Telemetry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.HasObjects {
		b.objects = t.Objects
	} else {
		t.Objects = b.objects
	}
	if t.Time.IsZero() {
		t.Time = b.now()
	}
	return t
}

// Send forwards one operator command to the robot.
func (b *Bridge) Send(cmd model.ControlCommand) error {
	line := parser.FormatCommand(cmd)
	if err := b.link.WriteLine(line); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	b.log.Debug("command sent", "line", line)
	return nil
}
