package wayfinder_test

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
	"github.com/wayfinder-dev/wayfinder"
	"github.com/wayfinder-dev/wayfinder/pkg/live"
)

func newAppTree() *wayfinder.Tree {
	build := func(wayfinder.State) any { return nil }
	return wayfinder.MustNewTree(
		&wayfinder.Route{
			Path:  "/",
			Build: build,
			Routes: []*wayfinder.Route{
				{Path: "family/:fid", Name: "family", Build: build},
				{Path: "old", Redirect: func(wayfinder.State) wayfinder.Outcome {
					return wayfinder.RedirectTo("/family/1")
				}},
			},
		},
		&wayfinder.Route{Path: "/login", Build: build},
	)
}

func newTestApp(t *testing.T, cfg wayfinder.Config) (*wayfinder.App, *httptest.Server) {
	t.Helper()
	app := wayfinder.New(newAppTree(), cfg)
	ts := httptest.NewServer(app)
	t.Cleanup(func() {
		app.Shutdown(context.Background())
		ts.Close()
	})
	return app, ts
}

func dialApp(t *testing.T, ts *httptest.Server, entry string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if entry != "" {
		wsURL += "?location=" + url.QueryEscape(entry)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *live.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg live.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return &msg
}

func TestAppResolvesEntryLocation(t *testing.T) {
	_, ts := newTestApp(t, wayfinder.Config{})
	conn := dialApp(t, ts, "/old")

	msg := readMessage(t, conn)
	if msg.Type != live.MessageResolution {
		t.Fatalf("Type = %q, want %q (%+v)", msg.Type, live.MessageResolution, msg)
	}
	if msg.Final != "/family/1" {
		t.Errorf("Final = %q, want /family/1", msg.Final)
	}
	if msg.Redirects != 1 {
		t.Errorf("Redirects = %d, want 1", msg.Redirects)
	}
}

func TestAppNavigate(t *testing.T) {
	_, ts := newTestApp(t, wayfinder.Config{})
	conn := dialApp(t, ts, "")
	readMessage(t, conn) // entry resolution

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(&live.Message{Type: live.MessageNavigate, Location: "/family/9"}); err != nil {
		t.Fatalf("write navigate: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != live.MessageResolution || msg.Final != "/family/9" {
		t.Fatalf("got %+v, want resolution of /family/9", msg)
	}
	if got := msg.Params["fid"]; got != "9" {
		t.Errorf("Params[fid] = %q, want 9", got)
	}
}

func TestAppGlobalRedirect(t *testing.T) {
	var loggedIn atomic.Bool
	gate := func(s wayfinder.State) wayfinder.Outcome {
		if !loggedIn.Load() && s.Sub() != "/login" {
			return wayfinder.RedirectTo("/login")
		}
		return wayfinder.NoRedirect()
	}

	app, ts := newTestApp(t, wayfinder.Config{Redirect: gate})
	conn := dialApp(t, ts, "/family/1")

	msg := readMessage(t, conn)
	if msg.Final != "/login" {
		t.Fatalf("Final = %q, want /login", msg.Final)
	}

	// Logging in and broadcasting re-resolves the requested location,
	// landing the session where it originally wanted to go.
	loggedIn.Store(true)
	app.Broadcast()

	msg = readMessage(t, conn)
	if msg.Type != live.MessageResolution || msg.Final != "/family/1" {
		t.Fatalf("got %+v, want refreshed resolution of /family/1", msg)
	}
}

func TestAppHealthz(t *testing.T) {
	app, ts := newTestApp(t, wayfinder.Config{})
	conn := dialApp(t, ts, "")
	readMessage(t, conn)

	if got := app.SessionCount(); got != 1 {
		t.Fatalf("SessionCount() = %d, want 1", got)
	}

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAppMetricsEndpoint(t *testing.T) {
	_, ts := newTestApp(t, wayfinder.Config{Metrics: true})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAppMetricsOffByDefault(t *testing.T) {
	_, ts := newTestApp(t, wayfinder.Config{})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestParseLocation(t *testing.T) {
	loc, err := wayfinder.ParseLocation("/family//1?x=2")
	if err != nil {
		t.Fatalf("ParseLocation: %v", err)
	}
	if loc.Full() != "/family/1?x=2" {
		t.Errorf("Full() = %q, want /family/1?x=2", loc.Full())
	}

	if _, err := wayfinder.ParseLocation("https://evil.example/"); err == nil {
		t.Error("expected absolute URL to be rejected")
	}
}
