package live

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wayfinder-dev/wayfinder/pkg/middleware"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// SECURITY: Fatal on entropy failure - weak IDs are dangerous
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// Session is one live client connection driving its own navigator.
// Incoming messages are handled on the read goroutine; outcomes arrive
// on the navigator goroutine; both funnel writes through send.
type Session struct {
	// ID identifies the session in logs and metrics.
	ID string

	conn    *websocket.Conn
	nav     *navigator.Navigator
	config  *Config
	logger  *slog.Logger
	onClose func(*Session)

	mu     sync.Mutex // guards conn writes
	done   chan struct{}
	closed atomic.Bool
}

// newSession builds a session over conn with its own navigator. onClose
// runs once when the session tears down.
func newSession(tree *route.Tree, conn *websocket.Conn, config *Config, logger *slog.Logger, navOpts []navigator.Option, onClose func(*Session)) *Session {
	s := &Session{
		ID:      generateSessionID(),
		conn:    conn,
		config:  config,
		onClose: onClose,
		done:    make(chan struct{}),
	}
	s.logger = logger.With("session_id", s.ID)

	opts := make([]navigator.Option, 0, len(navOpts)+2)
	opts = append(opts, navOpts...)
	opts = append(opts,
		navigator.WithLogger(s.logger),
		navigator.OnResult(s.deliver),
	)
	s.nav = navigator.New(tree, opts...)

	return s
}

// Navigator returns the session's navigator, for servers that drive
// navigation from the application side.
func (s *Session) Navigator() *navigator.Navigator {
	return s.nav
}

// Start launches the session loops. Call once, after registration.
func (s *Session) Start(ctx context.Context) {
	s.nav.Start(ctx)
	go s.readLoop()
	go s.pingLoop()
}

// Close tears the session down: the navigator first so no further
// outcomes are delivered, then the connection. Close is idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.nav.Close()
	s.conn.Close()
	if s.onClose != nil {
		s.onClose(s)
	}
}

// readLoop continuously reads client messages from the connection.
// It blocks until the connection is closed or an error occurs.
func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				middleware.RecordWebSocketError("read")
			}
			return
		}

		s.handleMessage(msg)
	}
}

// handleMessage decodes one client message and hands it to the
// navigator.
func (s *Session) handleMessage(data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		s.logger.Warn("message rejected", "error", err)
		middleware.RecordWebSocketError("decode")
		s.send(&Message{Type: MessageError, Kind: KindBadMessage, Reason: err.Error()})
		return
	}

	switch msg.Type {
	case MessageNavigate:
		if err := s.nav.Navigate(msg.Location); err != nil {
			s.logger.Warn("navigate rejected", "location", msg.Location, "error", err)
			s.send(&Message{Type: MessageError, Kind: KindBadLocation, Reason: err.Error()})
		}

	case MessageRefresh:
		middleware.RecordRefresh()
		s.nav.Refresh()
	}
}

// deliver runs on the navigator goroutine with each published outcome.
func (s *Session) deliver(res *resolve.Resolution, err error) {
	if err != nil {
		s.send(NewErrorMessage(err))
		return
	}
	s.send(NewResolutionMessage(res))
}

// send writes one message to the client. Write failures are logged but
// not acted on here; the read loop notices the dead connection and
// tears the session down.
func (s *Session) send(msg *Message) {
	data, err := msg.Encode()
	if err != nil {
		s.logger.Error("message encode error", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("write error", "error", err)
		middleware.RecordWebSocketError("write")
	}
}

// pingLoop keeps the connection alive with periodic pings.
// It runs until the session is closed.
func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *Session) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
}
