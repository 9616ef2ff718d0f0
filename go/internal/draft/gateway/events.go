package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hooplab/draftroom/go/internal/draft/events"
)

// DraftEvent is the envelope pushed to WebSocket clients.
type DraftEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType identifies the payload carried by a DraftEvent.
type EventType string

const (
	EventTypeLivePickChanged EventType = "LivePickChanged"
	EventTypePickMade        EventType = "PickMade"
	EventTypePickTraded      EventType = "PickTraded"
	EventTypeScheduleReset   EventType = "ScheduleReset"
	EventTypeTimerTick       EventType = "TimerTick"
)

// NewEvent wraps a payload in a stamped envelope.
func NewEvent(eventType EventType, payload interface{}) (*DraftEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ParseEventPayload decodes the event data into its concrete payload struct.
func ParseEventPayload(event *DraftEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeLivePickChanged:
		var payload events.LivePickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePickMade:
		var payload events.PickMadePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePickTraded:
		var payload events.PickTradedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeScheduleReset:
		var payload events.ScheduleResetPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTimerTick:
		var payload events.TimerTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // unknown event type
	}
}
