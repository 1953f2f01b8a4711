// Package device implements SerialDevice using go.bug.st/serial,
// which provides the serial link between the robot and the operator monitor.
package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

// ErrNotOpen is returned when the serial port has been closed.
var ErrNotOpen = errors.New("serial port not open")

// ErrReadTimeout is returned by ReadLine when no line arrived in time.
var ErrReadTimeout = errors.New("read timeout")

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	port serial.Port
	r    *bufio.Reader
	dev  string
	baud int

	pending chan lineResult // in-flight read, owned by the single reader

	// guards port and r; writes come from the control loop and the reader's replies
	mu sync.Mutex
}

// NewSerialDevice creates and opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return &SerialDevice{port: p, r: bufio.NewReader(p), dev: dev, baud: baud}, nil
}

// Open ensures that the serial port is ready for use.
func (s *SerialDevice) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	p, err := serial.Open(s.dev, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("reopen serial %s failed: %w", s.dev, err)
	}
	s.port = p
	s.r = bufio.NewReader(p)
	s.pending = nil
	return nil
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Reader exposes the buffered reader for consumers that parse mixed
// text/binary streams. ReadLine must not be used concurrently with it.
func (s *SerialDevice) Reader() io.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r
}

// ReadLine reads a single line from the serial port, blocking until newline or
// timeout. A read that timed out stays in flight and its line is returned by
// the next call, so nothing is lost. Only one goroutine may read.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	s.mu.Lock()
	r := s.r
	open := s.port != nil
	s.mu.Unlock()
	if !open {
		return "", ErrNotOpen
	}
	return readLine(r, &s.pending, timeout)
}

type lineResult struct {
	line string
	err  error
}

// readLine reads from r through a single in-flight read kept in *pending.
func readLine(r *bufio.Reader, pending *chan lineResult, timeout time.Duration) (string, error) {
	if *pending == nil {
		ch := make(chan lineResult, 1)
		*pending = ch
		go func() {
			line, err := r.ReadString('\n')
			ch <- lineResult{line, err}
		}()
	}

	var res lineResult
	if timeout <= 0 {
		res = <-*pending
	} else {
		select {
		case res = <-*pending:
		case <-time.After(timeout):
			return "", ErrReadTimeout
		}
	}
	*pending = nil
	return res.line, res.err
}

// WriteLine writes a single line followed by '\n' to the serial port.
func (s *SerialDevice) WriteLine(line string) error {
	_, err := s.Write(append([]byte(line), '\r', '\n'))
	return err
}

// Write writes raw bytes to the serial port.
func (s *SerialDevice) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return 0, ErrNotOpen
	}
	return s.port.Write(p)
}
