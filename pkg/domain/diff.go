package domain

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Mode is set when the mode changed.
	Mode *Mode `json:"mode,omitempty"`

	// Appended contains the utterances added since the old snapshot.
	Appended []Utterance `json:"appended,omitempty"`

	// Reset is true when the transcript was cleared (or rewritten) and clients
	// must drop their local copy before applying Appended.
	Reset bool `json:"reset,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession (initial load).
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.Mode != newSession.Mode {
		mode := newSession.Mode
		diff.Mode = &mode
	}

	switch {
	case oldSession == nil:
		diff.Appended = newSession.Transcript.Clone()
	case isPrefix(oldSession.Transcript, newSession.Transcript):
		if len(newSession.Transcript) > len(oldSession.Transcript) {
			diff.Appended = newSession.Transcript[len(oldSession.Transcript):].Clone()
		}
	default:
		// Transcript shrank or diverged: the only legal way is a reset.
		diff.Reset = true
		diff.Appended = newSession.Transcript.Clone()
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func isPrefix(prefix, full Transcript) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Mode == nil && len(d.Appended) == 0 && !d.Reset
}
