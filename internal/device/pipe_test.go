package device

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_LinesBothWays(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, a.WriteLine("f300"))
	require.NoError(t, b.WriteLine("ping dist: 41.00000"))

	line, err := b.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "f300\r\n", line)

	line, err = a.ReadLine(0)
	require.NoError(t, err)
	assert.Equal(t, "ping dist: 41.00000\r\n", line)
}

func TestPipe_TimeoutKeepsLine(t *testing.T) {
	a, b := NewPipe()

	_, err := b.ReadLine(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrReadTimeout)

	// the read that timed out is still in flight and delivers this line
	require.NoError(t, a.WriteLine("k"))
	line, err := b.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "k\r\n", line)
}

func TestPipe_Close(t *testing.T) {
	a, b := NewPipe()
	_, _ = a.Write([]byte("tail"))
	require.NoError(t, a.Close())

	line, err := b.ReadLine(time.Second)
	assert.Equal(t, "tail", line)
	assert.ErrorIs(t, err, io.EOF)

	assert.ErrorIs(t, a.WriteLine("x"), io.ErrClosedPipe)
}

var _ Device = (*PipeDevice)(nil)
