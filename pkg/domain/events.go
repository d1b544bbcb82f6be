package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurn      EventType = "turn"
	EventModelCall EventType = "model_call"
	EventReset     EventType = "reset"
)

// Request purposes sent to the model service.
const (
	PurposeFindMistakes = "find_mistakes"
	PurposeCorrect      = "correct"
)

// Turn outcomes.
const (
	OutcomeOffered   = "offered" // mistakes listed, correction offered
	OutcomeCorrected = "corrected"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent describes one completed controller transition.
type TurnEvent struct {
	EventBase
	From    Mode   `json:"from"`
	To      Mode   `json:"to"`
	Outcome string `json:"outcome"`
}

// ModelEvent describes one call to the external model service.
type ModelEvent struct {
	EventBase
	Purpose  string        `json:"purpose"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for controller observability.
type LifecycleHooks struct {
	OnTurn      func(context.Context, *TurnEvent)
	OnModelCall func(context.Context, *ModelEvent)
	OnReset     func(context.Context, *EventBase)
}
