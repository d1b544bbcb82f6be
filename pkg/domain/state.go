package domain

import (
	"fmt"
	"regexp"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidSessionID reports whether id is safe to use as a key in every store:
// 1 to 128 letters, digits, underscores or hyphens.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Mode is the position of a session in the conversation state machine.
type Mode string

const (
	// ModeAwaitingText expects new text to proofread. Initial mode.
	ModeAwaitingText Mode = "awaiting_text"
	// ModeAwaitingCorrectionAnswer expects a yes/no reply to the correction offer.
	ModeAwaitingCorrectionAnswer Mode = "awaiting_correction_answer"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeAwaitingText || m == ModeAwaitingCorrectionAnswer
}

// Session represents the current snapshot of one conversation.
type Session struct {
	// ID is the identifier the session is stored under.
	ID string `json:"id"`

	// Transcript is the rendered history of the conversation.
	Transcript Transcript `json:"transcript"`

	// Mode indicates whether the next input is new text or a correction answer.
	Mode Mode `json:"mode"`

	// PendingOriginalText holds the text offered for correction.
	// Set if and only if Mode == ModeAwaitingCorrectionAnswer.
	PendingOriginalText *string `json:"pending_original_text,omitempty"`
}

// NewSession creates a clean session awaiting text.
func NewSession(id string) *Session {
	return &Session{
		ID:         id,
		Transcript: Transcript{},
		Mode:       ModeAwaitingText,
	}
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Transcript = s.Transcript.Clone()
	if s.PendingOriginalText != nil {
		pending := *s.PendingOriginalText
		out.PendingOriginalText = &pending
	}
	return &out
}

// Pending returns the text awaiting a correction answer.
func (s *Session) Pending() (string, bool) {
	if s.PendingOriginalText == nil {
		return "", false
	}
	return *s.PendingOriginalText, true
}

// Validate checks the session invariants: the pending text is present exactly
// when a correction answer is awaited, and transcript roles alternate.
func (s *Session) Validate() error {
	if !s.Mode.IsValid() {
		return &InvalidStateError{Reason: fmt.Sprintf("unknown mode %q", s.Mode)}
	}
	hasPending := s.PendingOriginalText != nil
	if s.Mode == ModeAwaitingCorrectionAnswer && !hasPending {
		return &InvalidStateError{Reason: "awaiting a correction answer without pending original text"}
	}
	if s.Mode == ModeAwaitingText && hasPending {
		return &InvalidStateError{Reason: "pending original text set while awaiting new text"}
	}
	for i := 1; i < len(s.Transcript); i++ {
		if s.Transcript[i].Role == s.Transcript[i-1].Role {
			return &InvalidStateError{Reason: fmt.Sprintf("transcript entries %d and %d share role %q", i-1, i, s.Transcript[i].Role)}
		}
	}
	return nil
}
