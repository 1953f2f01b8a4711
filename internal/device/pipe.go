package device

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

// buffer is an unbounded in-memory byte queue. Reads block until data
// arrives or the buffer is closed; writes never block.
type buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	closed bool
}

func newBuffer() *buffer {
	b := &buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.data.Len() == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.data.Len() == 0 {
		return 0, io.EOF
	}
	return b.data.Read(p)
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := b.data.Write(p)
	b.cond.Broadcast()
	return n, nil
}

func (b *buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// PipeDevice is one end of an in-memory link created by NewPipe. It lets the
// robot and the monitor run in one process without a serial port.
type PipeDevice struct {
	in  *buffer
	out *buffer
	r   *bufio.Reader

	pending chan lineResult
}

// NewPipe returns two connected devices: lines written to one are read from
// the other.
func NewPipe() (*PipeDevice, *PipeDevice) {
	ab, ba := newBuffer(), newBuffer()
	a := &PipeDevice{in: ba, out: ab, r: bufio.NewReader(ba)}
	b := &PipeDevice{in: ab, out: ba, r: bufio.NewReader(ab)}
	return a, b
}

// ReadLine implements Device.
func (p *PipeDevice) ReadLine(timeout time.Duration) (string, error) {
	return readLine(p.r, &p.pending, timeout)
}

// WriteLine implements Device.
func (p *PipeDevice) WriteLine(s string) error {
	_, err := p.out.Write(append([]byte(s), '\r', '\n'))
	return err
}

// Write implements Device.
func (p *PipeDevice) Write(b []byte) (int, error) { return p.out.Write(b) }

// Reader exposes the buffered reader for mixed text/binary streams.
func (p *PipeDevice) Reader() io.Reader { return p.r }

// Close closes both directions; the peer reads io.EOF once drained.
func (p *PipeDevice) Close() error {
	p.in.close()
	p.out.close()
	return nil
}
