// Package wire defines the WebSocket protocol between the editor UI and a
// session.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/plotconfig/internal/predicate"
	"github.com/matthewbaird/plotconfig/internal/resolver"
	"github.com/matthewbaird/plotconfig/internal/session"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// Client message types.
const (
	TypeDispatch = "dispatch"
	TypeChange   = "change"
	TypeUndo     = "undo"
	TypeRedo     = "redo"
	TypeState    = "state"
	TypeComplete = "complete"
	TypePing     = "ping"
)

// Server message types.
const (
	TypeSession     = "session"
	TypeCompletions = "completions"
	TypeError       = "error"
	TypePong        = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "dispatch", "change", "undo", "redo", "state", "complete", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// DispatchData is the payload for "dispatch" messages.
type DispatchData struct {
	Kind   string          `json:"kind"`
	Intent json.RawMessage `json:"intent,omitempty"`
}

// ChangeData is the payload for "change" messages.
type ChangeData struct {
	Axis    string         `json:"axis"`
	Field   resolver.Field `json:"field"`
	Value   string         `json:"value,omitempty"`
	Context *types.Context `json:"context,omitempty"`
}

// Change returns the resolver change carried by d.
func (d ChangeData) Change() resolver.Change {
	return resolver.Change{Field: d.Field, Value: d.Value, Context: d.Context}
}

// CompleteData is the payload for "complete" messages. ContextType names
// the entity type whose identifiers supply values; when empty the entity
// type of Axis in the session's configuration is used.
type CompleteData struct {
	Axis        string `json:"axis,omitempty"`
	ContextType string `json:"context_type,omitempty"`
	Expr        string `json:"expr"`
	Cursor      int    `json:"cursor"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "state", "completions", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
	Resumed   bool   `json:"resumed"`
}

// StateData is the full editor state pushed after every operation.
type StateData = session.View

// CompletionsData carries completion suggestions for an expression.
type CompletionsData struct {
	Items []predicate.CompletionItem `json:"items"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
