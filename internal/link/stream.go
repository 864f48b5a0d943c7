// internal/link/stream.go
package link

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Stream adapts any byte stream (serial port, stdio) into a Transport.
// A single reader goroutine moves bytes into a bounded inbox so that
// ByteAvailable never touches the device.
type Stream struct {
	r   io.Reader
	w   io.Writer
	c   io.Closer
	log zerolog.Logger

	// isTimeout reports read errors that only mean "nothing arrived yet".
	isTimeout func(error) bool

	in *inbox

	wmu    sync.Mutex
	closed bool
}

// NewStream starts the reader goroutine. c may be nil.
func NewStream(r io.Reader, w io.Writer, c io.Closer, log zerolog.Logger) *Stream {
	return newStream(r, w, c, nil, log)
}

func newStream(r io.Reader, w io.Writer, c io.Closer, isTimeout func(error) bool, log zerolog.Logger) *Stream {
	s := &Stream{
		r:         r,
		w:         w,
		c:         c,
		log:       log,
		isTimeout: isTimeout,
		in:        newInbox(),
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	defer s.in.shut()

	buf := make([]byte, 64)
	for {
		n, err := s.r.Read(buf)
		for _, b := range buf[:n] {
			if !s.in.push(b) {
				s.log.Warn().Uint8("byte", b).Msg("link inbox full, byte dropped")
			}
		}
		if err == nil {
			continue
		}
		if s.isTimeout != nil && s.isTimeout(err) {
			continue
		}
		if s.isClosed() || errors.Is(err, io.EOF) {
			s.log.Debug().Err(err).Msg("link reader stopped")
			return
		}
		s.log.Error().Err(err).Msg("link read failed")
		return
	}
}

func (s *Stream) isClosed() bool {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.closed
}

func (s *Stream) Send(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for len(p) > 0 {
		n, err := s.w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (s *Stream) ByteAvailable() bool {
	return s.in.available()
}

func (s *Stream) ReceiveByte() (byte, error) {
	return s.in.receive(context.Background())
}

func (s *Stream) Expect(ctx context.Context, pattern string) (bool, error) {
	return expect(ctx, s.in, pattern)
}

func (s *Stream) Close() error {
	s.wmu.Lock()
	if s.closed {
		s.wmu.Unlock()
		return nil
	}
	s.closed = true
	s.wmu.Unlock()

	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
