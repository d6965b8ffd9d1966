package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/wayfinder-dev/wayfinder/pkg/middleware"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/refresh"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// Config holds configuration for the live server.
type Config struct {
	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// ReadTimeout is the maximum time to wait for a client message or
	// pong. Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between keepalive pings.
	// Default: 30 seconds.
	PingInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 16KB.
	MaxMessageSize int64

	// ShutdownTimeout is the maximum time to wait for sessions to
	// close during Shutdown. Default: 30 seconds.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
// SECURITY: CheckOrigin enforces same-origin by default to prevent
// cross-site WebSocket hijacking.
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024, // 16KB
		ShutdownTimeout: 30 * time.Second,
	}
}

// SameOriginCheck validates that the WebSocket request origin matches
// the host. This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin header.
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || r.Host == "" {
		return false
	}
	// Host includes the port when present, so ports must match too.
	return u.Host == r.Host
}

// Server hosts live navigation sessions over WebSocket. Every accepted
// connection gets its own navigator over the shared route tree,
// configured with the navigator options given to New.
type Server struct {
	tree     *route.Tree
	config   *Config
	navOpts  []navigator.Option
	upgrader websocket.Upgrader
	logger   *slog.Logger
	source   *refresh.Notifier

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// New creates a live server over tree. navOpts configure each
// session's navigator: the redirect rule, the redirect limit, and any
// middleware.
func New(tree *route.Tree, config *Config, navOpts ...navigator.Option) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		// Fill in defaults for any unset fields
		defaults := DefaultConfig()
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.PingInterval == 0 {
			config.PingInterval = defaults.PingInterval
		}
		if config.MaxMessageSize == 0 {
			config.MaxMessageSize = defaults.MaxMessageSize
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
	}

	return &Server{
		tree:    tree,
		config:  config,
		navOpts: navOpts,
		source:  new(refresh.Notifier),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:   slog.Default().With("component", "live"),
		sessions: make(map[string]*Session),
	}
}

// Mount registers the live endpoints on r:
//
//	GET /ws       WebSocket upgrade; ?location= names the entry location
//	GET /healthz  liveness probe
func (s *Server) Mount(r chi.Router) {
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
}

// Handler returns a standalone handler with the live endpoints mounted
// at the root, for servers that do not bring their own router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

// handleWebSocket upgrades the connection and starts a session for it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		middleware.RecordWebSocketError("upgrade")
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	// Each session subscribes to the server-wide refresh source, so
	// Broadcast reaches every navigator.
	opts := make([]navigator.Option, 0, len(s.navOpts)+1)
	opts = append(opts, s.navOpts...)
	opts = append(opts, navigator.WithSource(s.source))

	sess := newSession(s.tree, conn, s.config, s.logger, opts, s.unregister)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	middleware.RecordSessionOpen()
	s.logger.Info("session opened", "session_id", sess.ID)

	sess.Start(context.Background())

	// Resolve the location the client landed on.
	initial := r.URL.Query().Get("location")
	if initial == "" {
		initial = "/"
	}
	if err := sess.nav.Navigate(initial); err != nil {
		s.logger.Warn("initial location rejected", "location", initial, "error", err)
		sess.send(&Message{Type: MessageError, Kind: KindBadLocation, Reason: err.Error()})
	}
}

// unregister drops a closed session from the session table.
func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	if ok {
		middleware.RecordSessionClose()
		s.logger.Info("session closed", "session_id", sess.ID)
	}
}

// handleHealth reports liveness and the session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Broadcast schedules a refresh on every connected session, for when
// server-side state consulted by redirect rules has changed. Sessions
// re-resolve their current location and receive a fresh outcome.
func (s *Server) Broadcast() {
	s.source.Notify()
}

// Shutdown stops accepting connections and closes every session,
// waiting up to the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sess := range sessions {
			sess.Close()
		}
	}()

	select {
	case <-done:
		s.logger.Info("live server shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
