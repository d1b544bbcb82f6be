package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/proofreader/pkg/domain"
)

// JSON-Lines event types emitted by JSONHandler.
const (
	EventUtterance = "utterance"
	EventSystem    = "system"
)

// Event is one line of JSONHandler output.
type Event struct {
	Type  string      `json:"type"`
	Role  domain.Role `json:"role,omitempty"`
	Text  string      `json:"text"`
	Error bool        `json:"error,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
//
// Each input line may be a JSON string, an object with a "text" field, or raw text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, utterances []domain.Utterance) error {
	for _, u := range utterances {
		if err := h.Encoder.Encode(Event{Type: EventUtterance, Role: u.Role, Text: u.Text, Error: u.Error}); err != nil {
			return err
		}
	}
	return nil
}

// Input reads one message per line: a JSON string, {"text": ...} or raw text.
// Lines the sanitizer rejects are reported as system error events and skipped.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		clean, sanitizeErr := SanitizeInput(decodeLine(strings.TrimSpace(line)))
		if sanitizeErr == nil {
			return clean, nil
		}
		if err := h.Encoder.Encode(Event{Type: EventSystem, Text: sanitizeErr.Error(), Error: true}); err != nil {
			return "", err
		}
	}
}

func decodeLine(line string) string {
	var val string
	if err := json.Unmarshal([]byte(line), &val); err == nil {
		return val
	}

	var msg struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &msg); err == nil && msg.Text != nil {
		return *msg.Text
	}

	return line
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Event{Type: EventSystem, Text: msg})
}
