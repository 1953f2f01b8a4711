package telemetry

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/geom"
	"Roamer/internal/model"
)

func sample() model.Telemetry {
	return model.Telemetry{
		Robot:    geom.Pose{X: 120.25, Y: -33.5, Heading: 359.75},
		Target:   geom.Pose{X: 600, Y: 0.1, Heading: -15},
		Approach: 205,
		Mode:     1,
		Objects: []model.ObjectRecord{
			{X: 540, Y: 0, Radius: 50, Type: 1},
			{X: -1000.5, Y: 2000.125, Radius: 65, Type: 0},
			{X: 3, Y: 4, Radius: 150, Type: 3},
		},
		HasObjects: true,
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sample()
	b, err := Encode(in)
	require.NoError(t, err)
	assert.Len(t, b, headerSize+3*objectSize)
	assert.Equal(t, Magic, string(b[:4]))

	out, err := Decode(b)
	require.NoError(t, err)
	assert.InDelta(t, in.Robot.X, out.Robot.X, 1e-4)
	assert.InDelta(t, in.Robot.Y, out.Robot.Y, 1e-4)
	assert.InDelta(t, in.Robot.Heading, out.Robot.Heading, 1e-4)
	assert.InDelta(t, in.Target.Y, out.Target.Y, 1e-4)
	assert.InDelta(t, in.Target.Heading, out.Target.Heading, 1e-4)
	assert.InDelta(t, in.Approach, out.Approach, 1e-4)
	assert.Equal(t, in.Mode, out.Mode)
	require.True(t, out.HasObjects)
	require.Len(t, out.Objects, len(in.Objects))
	for i := range in.Objects {
		assert.InDelta(t, in.Objects[i].X, out.Objects[i].X, 1e-3)
		assert.InDelta(t, in.Objects[i].Y, out.Objects[i].Y, 1e-3)
		assert.InDelta(t, in.Objects[i].Radius, out.Objects[i].Radius, 1e-3)
		assert.Equal(t, in.Objects[i].Type, out.Objects[i].Type)
	}
}

func TestEncode_OmitsObjects(t *testing.T) {
	in := sample()
	in.HasObjects = false
	b, err := Encode(in)
	require.NoError(t, err)
	assert.Len(t, b, headerSize)
	assert.Equal(t, byte(NoObjects), b[len(b)-1])

	out, err := Decode(b)
	require.NoError(t, err)
	assert.False(t, out.HasObjects)
	assert.Empty(t, out.Objects)
}

func TestEncode_EmptyObjectList(t *testing.T) {
	b, err := Encode(model.Telemetry{HasObjects: true})
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	assert.True(t, out.HasObjects)
	assert.Empty(t, out.Objects)
}

func TestEncode_TooManyObjects(t *testing.T) {
	_, err := Encode(model.Telemetry{HasObjects: true, Objects: make([]model.ObjectRecord, MaxObjects+1)})
	assert.ErrorIs(t, err, ErrTooManyObjs)
}

func TestDecode_Errors(t *testing.T) {
	b, err := Encode(sample())
	require.NoError(t, err)

	_, err = Decode(b[:10])
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = Decode(b[:len(b)-1])
	assert.ErrorIs(t, err, ErrShortFrame)

	bad := append([]byte("DATX"), b[4:]...)
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestStreamReader_Interleaved(t *testing.T) {
	f1, err := Encode(sample())
	require.NoError(t, err)
	plain := sample()
	plain.HasObjects = false
	f2, err := Encode(plain)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString("scanning...\r\n")
	buf.Write(f1)
	buf.WriteString("Done\n")
	buf.Write(f2)
	buf.WriteString("tail")

	r := NewStreamReader(&buf)

	m, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "scanning...", m.Line)
	assert.Nil(t, m.Frame)

	m, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, m.Frame)
	assert.Len(t, m.Frame.Objects, 3)
	assert.False(t, m.Frame.Time.IsZero())

	m, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Done", m.Line)

	m, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, m.Frame)
	assert.False(t, m.Frame.HasObjects)

	m, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "tail", m.Line)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamReader_TruncatedFrame(t *testing.T) {
	f, err := Encode(sample())
	require.NoError(t, err)
	r := NewStreamReader(bytes.NewReader(f[:headerSize+5]))
	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
