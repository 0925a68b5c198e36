package gateway

import (
	"encoding/json"
	"fmt"
)

// EventType identifies a snapshot event pushed to viewers.
type EventType string

const (
	EventTimer      EventType = "timer"
	EventConfig     EventType = "config"
	EventRounds     EventType = "rounds"
	EventCategories EventType = "categories"
	EventViewers    EventType = "viewers"
)

// Event is the wire envelope for every server-to-client message.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Encode marshals an event for the wire.
func (e *Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return data, nil
}
