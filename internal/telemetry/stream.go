package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"Roamer/internal/model"
)

// Message is either a text line or a decoded frame.
type Message struct {
	Line  string
	Frame *model.Telemetry
}

// StreamReader splits the robot's outbound stream, where plain text lines and
// binary frames are interleaved. A frame is recognised by its magic at the
// start of a line.
type StreamReader struct {
	r   *bufio.Reader
	now func() time.Time
}

// NewStreamReader wraps r.
func NewStreamReader(r io.Reader) *StreamReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &StreamReader{r: br, now: time.Now}
}

// Next blocks until a complete line or frame has been read.
func (s *StreamReader) Next() (Message, error) {
	first, err := s.r.Peek(1)
	if err != nil {
		return Message{}, err
	}
	if first[0] == Magic[0] {
		head, err := s.r.Peek(len(Magic))
		if err == nil && string(head) == Magic {
			f, err := s.readFrame()
			if err != nil {
				return Message{}, err
			}
			return Message{Frame: &f}, nil
		}
	}

	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return Message{}, err
	}
	return Message{Line: strings.TrimRight(line, "\r\n")}, nil
}

func (s *StreamReader) readFrame() (model.Telemetry, error) {
	var t model.Telemetry
	head := make([]byte, headerSize)
	if _, err := io.ReadFull(s.r, head); err != nil {
		return t, fmt.Errorf("read frame header: %w", err)
	}
	decodeHeader(head[len(Magic):], &t)
	t.Time = s.now()

	count := int(head[headerSize-1])
	if count == NoObjects {
		return t, nil
	}
	body := make([]byte, count*objectSize)
	if _, err := io.ReadFull(s.r, body); err != nil {
		return t, fmt.Errorf("read frame objects: %w", err)
	}
	t.HasObjects = true
	t.Objects = decodeObjects(body, count)
	return t, nil
}
