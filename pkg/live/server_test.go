package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestTree() *route.Tree {
	build := func(route.State) any { return nil }
	return route.MustNewTree(
		&route.Route{
			Path:  "/",
			Build: build,
			Routes: []*route.Route{
				{Path: "family/:fid", Build: build},
				{Path: "old", Redirect: func(route.State) route.Outcome {
					return route.RedirectTo("/family/1")
				}},
			},
		},
		&route.Route{Path: "/maintenance", Build: build},
	)
}

func newTestServer(t *testing.T, tree *route.Tree, navOpts ...navigator.Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(tree, nil, navOpts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func wsEndpoint(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialSession(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", rawURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message %q: %v", data, err)
	}
	return &msg
}

func writeClientMessage(t *testing.T, conn *websocket.Conn, msg *Message) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

// =============================================================================
// Session Tests
// =============================================================================

func TestServerResolvesInitialLocation(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts)+"?location="+url.QueryEscape("/family/1"))

	msg := readServerMessage(t, conn)
	if msg.Type != MessageResolution {
		t.Fatalf("Type = %q, want %q (%+v)", msg.Type, MessageResolution, msg)
	}
	if msg.Final != "/family/1" {
		t.Errorf("Final = %q, want %q", msg.Final, "/family/1")
	}
	if got := msg.Params["fid"]; got != "1" {
		t.Errorf("Params[fid] = %q, want %q", got, "1")
	}
	wantRoutes := []string{"/", "/family/:fid"}
	if len(msg.Routes) != 2 || msg.Routes[0] != wantRoutes[0] || msg.Routes[1] != wantRoutes[1] {
		t.Errorf("Routes = %v, want %v", msg.Routes, wantRoutes)
	}
}

func TestServerDefaultsToRoot(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts))

	msg := readServerMessage(t, conn)
	if msg.Type != MessageResolution || msg.Final != "/" {
		t.Fatalf("got %+v, want resolution of /", msg)
	}
}

func TestServerNavigateFollowsRedirect(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn) // initial resolution

	writeClientMessage(t, conn, &Message{Type: MessageNavigate, Location: "/old"})

	msg := readServerMessage(t, conn)
	if msg.Type != MessageResolution {
		t.Fatalf("Type = %q, want %q (%+v)", msg.Type, MessageResolution, msg)
	}
	if msg.Final != "/family/1" {
		t.Errorf("Final = %q, want %q", msg.Final, "/family/1")
	}
	if msg.Redirects != 1 {
		t.Errorf("Redirects = %d, want 1", msg.Redirects)
	}
}

func TestServerReportsNotFound(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn)

	writeClientMessage(t, conn, &Message{Type: MessageNavigate, Location: "/nope"})

	msg := readServerMessage(t, conn)
	if msg.Type != MessageError {
		t.Fatalf("Type = %q, want %q (%+v)", msg.Type, MessageError, msg)
	}
	if msg.Kind != "not_found" {
		t.Errorf("Kind = %q, want %q", msg.Kind, "not_found")
	}
	if len(msg.Trace) != 1 || msg.Trace[0] != "/nope" {
		t.Errorf("Trace = %v, want [/nope]", msg.Trace)
	}
}

func TestServerRejectsBadMessages(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn)

	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"teleport"}`},
		{"navigate without location", `{"type":"navigate"}`},
		{"malformed json", `{"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatalf("write: %v", err)
			}
			msg := readServerMessage(t, conn)
			if msg.Type != MessageError || msg.Kind != KindBadMessage {
				t.Fatalf("got %+v, want %s error", msg, KindBadMessage)
			}
		})
	}
}

func TestServerRejectsBadLocation(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())
	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn)

	writeClientMessage(t, conn, &Message{Type: MessageNavigate, Location: "https://evil.example/x"})

	msg := readServerMessage(t, conn)
	if msg.Type != MessageError || msg.Kind != KindBadLocation {
		t.Fatalf("got %+v, want %s error", msg, KindBadLocation)
	}
}

func TestServerBroadcastRefreshesSessions(t *testing.T) {
	var maintenance atomic.Bool
	rule := func(s route.State) route.Outcome {
		if maintenance.Load() && s.Sub() != "/maintenance" {
			return route.RedirectTo("/maintenance")
		}
		return route.NoRedirect()
	}

	srv, ts := newTestServer(t, newTestTree(), navigator.WithRedirect(rule))
	conn := dialSession(t, wsEndpoint(ts))

	msg := readServerMessage(t, conn)
	if msg.Final != "/" {
		t.Fatalf("initial Final = %q, want /", msg.Final)
	}

	maintenance.Store(true)
	srv.Broadcast()

	msg = readServerMessage(t, conn)
	if msg.Type != MessageResolution {
		t.Fatalf("Type = %q, want %q (%+v)", msg.Type, MessageResolution, msg)
	}
	if msg.Final != "/maintenance" {
		t.Errorf("Final = %q, want %q", msg.Final, "/maintenance")
	}
	if msg.Redirects != 1 {
		t.Errorf("Redirects = %d, want 1", msg.Redirects)
	}
}

// =============================================================================
// Server Tests
// =============================================================================

func TestServerHealthz(t *testing.T) {
	_, ts := newTestServer(t, newTestTree())

	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn) // session is registered before the first outcome

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", body.Sessions)
	}
}

func TestServerUnregistersOnDisconnect(t *testing.T) {
	srv, ts := newTestServer(t, newTestTree())

	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn)
	if got := srv.SessionCount(); got != 1 {
		t.Fatalf("SessionCount() = %d, want 1", got)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("SessionCount() = %d after disconnect, want 0", srv.SessionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerShutdown(t *testing.T) {
	srv, ts := newTestServer(t, newTestTree())

	conn := dialSession(t, wsEndpoint(ts))
	readServerMessage(t, conn)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if got := srv.SessionCount(); got != 0 {
		t.Errorf("SessionCount() = %d after shutdown, want 0", got)
	}

	// The client connection is gone.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after shutdown")
	}

	// New connections are refused.
	if _, _, err := websocket.DefaultDialer.Dial(wsEndpoint(ts), nil); err == nil {
		t.Error("expected dial to fail after shutdown")
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "example.com", true},
		{"matching host", "http://example.com", "example.com", true},
		{"matching host with port", "http://example.com:8080", "example.com:8080", true},
		{"cross origin", "http://evil.example", "example.com", false},
		{"port mismatch", "http://example.com:9999", "example.com:8080", false},
		{"malformed origin", "://bad", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(req); got != tt.want {
				t.Errorf("SameOriginCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}
