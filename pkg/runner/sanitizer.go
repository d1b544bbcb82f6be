package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EnvMaxInputSize overrides DefaultMaxInputSize, in bytes.
const EnvMaxInputSize = "PROOFREADER_MAX_INPUT_SIZE"

// DefaultMaxInputSize bounds one message to a few pasted paragraphs.
var DefaultMaxInputSize = 16 * 1024

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// MaxInputSize is the byte limit SanitizeInput enforces right now.
func MaxInputSize() int {
	if raw, ok := os.LookupEnv(EnvMaxInputSize); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxInputSize
}

// SanitizeInput prepares a user message for the proofreading prompt.
//
// Oversized messages and invalid UTF-8 are rejected whole; the user has to
// resend rather than have part of their text proofread. Control characters
// are dropped, except the line breaks and tabs that shape pasted paragraphs.
func SanitizeInput(input string) (string, error) {
	if limit := MaxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, droppable) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if droppable(r) {
			return -1
		}
		return r
	}, input), nil
}

func droppable(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	}
	return unicode.IsControl(r)
}
