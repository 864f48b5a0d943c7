// internal/link/buffer.go
package link

import (
	"context"
	"strings"
	"sync"
)

// Buffer is a synchronous in-memory Transport. Input is queued with Feed;
// everything sent is kept for inspection.
type Buffer struct {
	mu      sync.Mutex
	input   []byte
	sent    []string
	closed  bool
	SendErr error
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Feed queues bytes for ReceiveByte.
func (b *Buffer) Feed(p ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.input = append(b.input, p...)
}

// FeedString queues the bytes of s.
func (b *Buffer) FeedString(s string) {
	b.Feed([]byte(s)...)
}

func (b *Buffer) Send(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.SendErr != nil {
		return b.SendErr
	}
	b.sent = append(b.sent, string(p))
	return nil
}

// Sent returns each Send payload in order.
func (b *Buffer) Sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

// Output returns everything sent, concatenated.
func (b *Buffer) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.sent, "")
}

// Reset forgets sent payloads.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}

func (b *Buffer) ByteAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.input) > 0
}

// ReceiveByte never blocks; an empty buffer reports ErrClosed.
func (b *Buffer) ReceiveByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.input) == 0 {
		return 0, ErrClosed
	}
	c := b.input[0]
	b.input = b.input[1:]
	return c, nil
}

func (b *Buffer) Expect(ctx context.Context, pattern string) (bool, error) {
	matches := 0
	for i := 0; i < len(pattern); i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		c, err := b.ReceiveByte()
		if err != nil {
			return false, err
		}
		if c == pattern[i] {
			matches++
		}
	}
	return matches == len(pattern), nil
}

func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
