package domain

// Role identifies the author of an Utterance.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Utterance is one role-tagged message in the transcript.
// It is a value type; once appended to a Transcript it is never modified.
type Utterance struct {
	Role Role   `json:"role"`
	Text string `json:"text"`

	// Error marks an assistant message reporting a failed model call.
	Error bool `json:"error,omitempty"`
}

// UserSaid builds a user utterance.
func UserSaid(text string) Utterance {
	return Utterance{Role: RoleUser, Text: text}
}

// AssistantSaid builds an assistant utterance.
func AssistantSaid(text string) Utterance {
	return Utterance{Role: RoleAssistant, Text: text}
}

// Transcript is the ordered history of Utterances for one session.
type Transcript []Utterance

// Append returns a new Transcript with u added at the end.
// The receiver's backing array is never shared with the result, so snapshots
// handed to callers stay stable.
func (t Transcript) Append(u ...Utterance) Transcript {
	out := make(Transcript, len(t), len(t)+len(u))
	copy(out, t)
	return append(out, u...)
}

// Last returns the final utterance, if any.
func (t Transcript) Last() (Utterance, bool) {
	if len(t) == 0 {
		return Utterance{}, false
	}
	return t[len(t)-1], true
}

// Clone returns an independent copy of the transcript.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
