// internal/link/transport.go
//
// Package link carries command bytes in and status text out.
package link

import (
	"context"
	"errors"
)

// ErrClosed is returned once a transport has been closed or its peer is gone for good.
var ErrClosed = errors.New("link: closed")

// ErrNoPeer is returned by Send when nobody is listening.
var ErrNoPeer = errors.New("link: no peer")

// ErrBackpressure is returned by Send when the peer is not draining its
// outbound queue. The frame is dropped.
var ErrBackpressure = errors.New("link: peer not reading, frame dropped")

// Transport is the byte link the supervisor talks over.
//
// ByteAvailable never blocks. ReceiveByte blocks only until the next byte;
// callers check ByteAvailable first. Expect reads exactly len(pattern) bytes.
type Transport interface {
	Send(p []byte) error
	ByteAvailable() bool
	ReceiveByte() (byte, error)
	Expect(ctx context.Context, pattern string) (bool, error)
	Close() error
}

// inbox is a bounded byte queue filled by a reader goroutine and drained by
// the loop goroutine.
type inbox struct {
	ch   chan byte
	done chan struct{}
}

const inboxSize = 256

func newInbox() *inbox {
	return &inbox{
		ch:   make(chan byte, inboxSize),
		done: make(chan struct{}),
	}
}

// push enqueues b. Reports false when the queue is full and b was dropped.
func (in *inbox) push(b byte) bool {
	select {
	case in.ch <- b:
		return true
	default:
		return false
	}
}

// shut marks the producer as gone. Queued bytes stay readable.
func (in *inbox) shut() {
	select {
	case <-in.done:
	default:
		close(in.done)
	}
}

func (in *inbox) available() bool {
	return len(in.ch) > 0
}

func (in *inbox) receive(ctx context.Context) (byte, error) {
	select {
	case b := <-in.ch:
		return b, nil
	default:
	}
	select {
	case b := <-in.ch:
		return b, nil
	case <-in.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// expect reads exactly len(pattern) bytes and reports whether all matched.
// A mismatch does not stop the read; the full length is always consumed.
func expect(ctx context.Context, in *inbox, pattern string) (bool, error) {
	matches := 0
	for i := 0; i < len(pattern); i++ {
		b, err := in.receive(ctx)
		if err != nil {
			return false, err
		}
		if b == pattern[i] {
			matches++
		}
	}
	return matches == len(pattern), nil
}

// SetName runs the module naming handshake. The module only accepts it
// right after a power cycle, so callers gate it; a module that is already
// in data mode never answers and ctx bounds the wait.
func SetName(ctx context.Context, t Transport, name string) (bool, error) {
	if name == "" {
		return false, errors.New("link: name required")
	}
	if err := t.Send([]byte("AT+NAME" + name)); err != nil {
		return false, err
	}
	return t.Expect(ctx, "OKsetname")
}
