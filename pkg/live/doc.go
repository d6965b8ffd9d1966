// Package live serves navigation sessions over WebSocket.
//
// Every accepted connection gets its own navigator over a shared route
// tree, so each client resolves locations independently while the
// server configures the redirect rule, redirect limit, and middleware
// once. The server can broadcast a refresh to all sessions when state
// consulted by redirect rules changes.
//
// # Protocol
//
// Clients and server exchange JSON messages with a type field:
//
//	client -> server
//	  {"type": "navigate", "location": "/family/1?tab=people"}
//	  {"type": "refresh"}
//
//	server -> client
//	  {"type": "resolution", "final": "/family/1", "routes": ["/", "/family/:fid"],
//	   "params": {"fid": "1"}, "redirects": 0}
//	  {"type": "error", "kind": "not_found", "reason": "...", "trace": ["/nope"]}
//
// Every navigate and refresh eventually produces exactly one
// resolution or error message, except when a newer request supersedes
// it first.
//
// # Sessions
//
// Each session runs two goroutines next to its navigator: a read loop
// decoding client messages and a ping loop keeping the connection
// alive. Outcomes are delivered from the navigator goroutine; all
// writes are serialized on a per-session mutex.
//
// # Mounting
//
// The server mounts onto a chi router, or serves standalone:
//
//	srv := live.New(tree, nil,
//	    navigator.WithRedirect(authGate),
//	)
//
//	r := chi.NewRouter()
//	r.Route("/live", func(r chi.Router) { srv.Mount(r) })
//	http.ListenAndServe(":8080", r)
//
// The /ws endpoint accepts a ?location= query parameter naming the
// location the client starts at; /healthz reports liveness and the
// session count.
package live
