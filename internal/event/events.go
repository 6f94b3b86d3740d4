// Package event defines the events an editor session emits and records.
// Events are written to the snapshot store and then published to the
// in-process event bus for downstream consumers.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/plotconfig/internal/types"
)

// Event types.
const (
	TypeConfigCompleted = "config_completed"
	TypeSessionClosed   = "session_closed"
)

// Event carries the canonical shape of every session event.
type Event struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	SessionID  string
	Summary    string
	PlotType   types.PlotType
	IndexType  string
	Payload    json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// NewConfigCompleted is emitted whenever an edit leaves the session with an
// executable configuration. The payload is the serialized configuration.
func NewConfigCompleted(sessionID string, cfg types.PlotConfig) Event {
	return Event{
		ID:         newID(),
		EventType:  TypeConfigCompleted,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Summary:    Describe(cfg),
		PlotType:   cfg.PlotType,
		IndexType:  cfg.IndexType,
		Payload:    mustJSON(cfg),
	}
}

// NewSessionClosed is emitted when a session is removed from its manager.
func NewSessionClosed(sessionID, reason string) Event {
	return Event{
		ID:         newID(),
		EventType:  TypeSessionClosed,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Summary:    "session closed: " + reason,
	}
}

// Config decodes the configuration carried by a config_completed event.
func (e Event) Config() (types.PlotConfig, error) {
	var cfg types.PlotConfig
	if e.EventType != TypeConfigCompleted {
		return cfg, fmt.Errorf("event %s carries no configuration", e.EventType)
	}
	if err := json.Unmarshal(e.Payload, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration of event %s: %w", e.ID, err)
	}
	return cfg, nil
}

// Describe renders a one-line summary such as
// "scatter of depmap_model: x=Chronos_Combined, y=expression".
func Describe(cfg types.PlotConfig) string {
	var axes []string
	for _, k := range cfg.AxisKeys() {
		d := cfg.Dimensions[k]
		label := d.DatasetID
		if d.Context != nil && d.Context.Name != "" {
			label += "[" + d.Context.Name + "]"
		}
		axes = append(axes, k+"="+label)
	}
	return fmt.Sprintf("%s of %s: %s", cfg.PlotType, cfg.IndexType, strings.Join(axes, ", "))
}
