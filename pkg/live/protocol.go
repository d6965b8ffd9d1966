package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

// Client to server message types.
const (
	// MessageNavigate requests resolution of a new location.
	MessageNavigate = "navigate"

	// MessageRefresh requests re-resolution of the current location,
	// for when client-side state consulted by redirect rules changed.
	MessageRefresh = "refresh"
)

// Server to client message types.
const (
	// MessageResolution carries a successful resolution outcome.
	MessageResolution = "resolution"

	// MessageError carries a failed resolution or a rejected request.
	MessageError = "error"
)

// Error kinds reported for rejected client messages. Failed
// resolutions use the kinds from resolve.Kind instead.
const (
	KindBadMessage  = "bad_message"
	KindBadLocation = "bad_location"
)

// Decode errors.
var (
	ErrUnknownMessage  = errors.New("live: unknown message type")
	ErrMissingLocation = errors.New("live: navigate message missing location")
)

// Message is the wire envelope for everything exchanged over a live
// connection. Type selects which of the remaining fields are
// populated.
type Message struct {
	Type string `json:"type"`

	// Location carries the raw location of a navigate request.
	Location string `json:"location,omitempty"`

	// Resolution payload.
	Final     string            `json:"final,omitempty"`
	Routes    []string          `json:"routes,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Redirects int               `json:"redirects,omitempty"`

	// Error payload.
	Kind   string   `json:"kind,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Trace  []string `json:"trace,omitempty"`
}

// Encode serializes m for the wire.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses and validates a client message.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("live: decode message: %w", err)
	}

	switch m.Type {
	case MessageNavigate:
		if m.Location == "" {
			return nil, ErrMissingLocation
		}
	case MessageRefresh:
		// No payload.
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}

	return &m, nil
}

// NewResolutionMessage flattens a successful resolution for the wire.
// Routes lists the matched templates root to leaf; Params merges the
// path parameters the same way.
func NewResolutionMessage(res *resolve.Resolution) *Message {
	routes := make([]string, 0, len(res.Stack))
	for _, m := range res.Stack {
		routes = append(routes, m.Route.FullPath())
	}
	return &Message{
		Type:      MessageResolution,
		Final:     res.Location.Full(),
		Routes:    routes,
		Params:    res.Stack.Params(),
		Redirects: res.Redirects,
	}
}

// NewErrorMessage flattens a failed resolution for the wire, keeping
// the kind label and redirect trace a client needs to explain the
// failure.
func NewErrorMessage(err error) *Message {
	return &Message{
		Type:   MessageError,
		Kind:   resolve.Kind(err),
		Reason: err.Error(),
		Trace:  resolve.Trace(err),
	}
}
