// internal/link/websocket.go
package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocketConfig is minimal listener config.
type WebSocketConfig struct {
	Listen string
	Path   string
	// ReadTimeout drops a silent peer. 0 disables it.
	ReadTimeout time.Duration
}

const (
	wsWriteTimeout = time.Second
	// outbound frames queued per peer; Send drops beyond this
	wsSendQueue = 64
)

// WebSocket serves one controlling peer at a time.
// Binary or text frames in are command bytes; status lines go out as text frames.
// Send only queues: a per-peer writer goroutine owns the socket writes, so a
// peer that stops reading costs the caller dropped frames, never time.
type WebSocket struct {
	log      zerolog.Logger
	cfg      WebSocketConfig
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	in       *inbox

	// peer is held for the whole lifetime of a connection.
	peer sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	out    chan []byte
	closed bool
}

// ListenWebSocket binds the listener and starts serving in the background.
func ListenWebSocket(cfg WebSocketConfig, log zerolog.Logger) (*WebSocket, error) {
	if cfg.Listen == "" {
		return nil, errors.New("link websocket: listen address required")
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("link websocket: listen %s: %w", cfg.Listen, err)
	}

	w := &WebSocket{
		log: log.With().Str("link", "websocket").Logger(),
		cfg: cfg,
		ln:  ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		in: newInbox(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, w.serve)
	w.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := w.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error().Err(err).Msg("websocket server stopped")
		}
	}()

	w.log.Info().Str("addr", ln.Addr().String()).Str("path", cfg.Path).Msg("websocket link listening")
	return w, nil
}

// Addr is the bound listener address.
func (w *WebSocket) Addr() net.Addr {
	return w.ln.Addr()
}

func (w *WebSocket) serve(rw http.ResponseWriter, r *http.Request) {
	if !w.peer.TryLock() {
		w.log.Warn().Str("remote", r.RemoteAddr).Msg("second peer refused")
		http.Error(rw, "busy", http.StatusConflict)
		return
	}
	defer w.peer.Unlock()

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return
	}
	out := make(chan []byte, wsSendQueue)
	w.conn = conn
	w.out = out
	w.mu.Unlock()

	written := make(chan struct{})
	go w.writeLoop(conn, out, written)

	w.log.Info().Str("remote", r.RemoteAddr).Msg("peer connected")

	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.out = nil
		close(out)
		w.mu.Unlock()
		conn.Close()
		<-written
		w.log.Info().Str("remote", r.RemoteAddr).Msg("peer disconnected")
	}()

	for {
		if w.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		}
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			w.log.Debug().Err(err).Msg("websocket read ended")
			return
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		for _, b := range msg {
			if !w.in.push(b) {
				w.log.Warn().Uint8("byte", b).Msg("link inbox full, byte dropped")
			}
		}
	}
}

// writeLoop drains the outbound queue. A failed write closes the
// connection, which ends the read loop in serve.
func (w *WebSocket) writeLoop(conn *websocket.Conn, out <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for p := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
			w.log.Debug().Err(err).Msg("websocket write failed")
			conn.Close()
			// keep draining so serve can close the queue
			for range out {
			}
			return
		}
	}
}

// LinkPresent reports whether a peer is connected. Lets the websocket
// link stand in for the presence pin on boards without one.
func (w *WebSocket) LinkPresent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

func (w *WebSocket) Send(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.conn == nil {
		return ErrNoPeer
	}
	select {
	case w.out <- append([]byte(nil), p...):
		return nil
	default:
		return ErrBackpressure
	}
}

func (w *WebSocket) ByteAvailable() bool {
	return w.in.available()
}

func (w *WebSocket) ReceiveByte() (byte, error) {
	return w.in.receive(context.Background())
}

func (w *WebSocket) Expect(ctx context.Context, pattern string) (bool, error) {
	return expect(ctx, w.in, pattern)
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	conn := w.conn
	w.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteTimeout))
		// hijacked connections outlive srv.Close
		conn.Close()
	}
	err := w.srv.Close()
	w.in.shut()
	return err
}
