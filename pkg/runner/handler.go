package runner

import (
	"context"

	"github.com/aretw0/proofreader/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents new transcript entries to the user.
	Output(ctx context.Context, utterances []domain.Utterance) error

	// Input reads the next message from the user.
	// It returns io.EOF once the source is exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (e.g. "conversation cleared").
	// This is distinct from transcript content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer turns assistant markdown into terminal output.
type ContentRenderer func(string) (string, error)

// Styler decorates a plain string, e.g. with terminal colours.
type Styler func(string) string
