package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/model"
	"Roamer/internal/telemetry"
)

func writeFrame(t *testing.T, link device.Device, tm model.Telemetry) {
	t.Helper()
	b, err := telemetry.Encode(tm)
	require.NoError(t, err)
	_, err = link.Write(b)
	require.NoError(t, err)
}

func TestBridge_FillsOmittedObjects(t *testing.T) {
	robotEnd, monEnd := device.NewPipe()
	sink := &monitorEnd{}
	b := NewBridge(monEnd, sink)
	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	objs := []model.ObjectRecord{{X: 100, Y: 200, Radius: 50, Type: 1}}
	require.NoError(t, robotEnd.WriteLine(StartLine))
	writeFrame(t, robotEnd, model.Telemetry{HasObjects: true, Objects: objs})
	writeFrame(t, robotEnd, model.Telemetry{Robot: geom.Pose{X: 10}})
	require.NoError(t, robotEnd.WriteLine("ping dist: 12.00000"))
	require.NoError(t, robotEnd.Close())

	select {
	case err := <-done:
		require.NoError(t, err, "EOF ends the bridge cleanly")
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop at EOF")
	}

	lines, frames := sink.snapshot()
	assert.Equal(t, []string{StartLine, "ping dist: 12.00000"}, lines)
	require.Len(t, frames, 2)
	assert.False(t, frames[1].HasObjects)
	assert.Equal(t, objs, frames[1].Objects)
	assert.InDelta(t, 10, frames[1].Robot.X, 1e-6)
	assert.False(t, frames[1].Time.IsZero())
}

func TestBridge_TruncatedFrameIsAnError(t *testing.T) {
	robotEnd, monEnd := device.NewPipe()
	b := NewBridge(monEnd, &monitorEnd{})

	_, err := robotEnd.Write([]byte(telemetry.Magic + "\x00\x00"))
	require.NoError(t, err)
	require.NoError(t, robotEnd.Close())

	assert.Error(t, b.Run(context.Background()))
}

func TestBridge_CancelStops(t *testing.T) {
	_, monEnd := device.NewPipe()
	b := NewBridge(monEnd, &monitorEnd{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge ignored cancellation")
	}
}

func TestBridge_Send(t *testing.T) {
	robotEnd, monEnd := device.NewPipe()
	b := NewBridge(monEnd, &monitorEnd{})

	require.NoError(t, b.Send(model.ControlCommand{Op: 'f', Value: 250, HasValue: true}))
	require.NoError(t, b.Send(model.ControlCommand{Op: 'k'}))

	line, err := robotEnd.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "f250", strings.TrimSpace(line))
	line, err = robotEnd.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "k", strings.TrimSpace(line))

	require.NoError(t, monEnd.Close())
	assert.Error(t, b.Send(model.ControlCommand{Op: 'k'}))
}
