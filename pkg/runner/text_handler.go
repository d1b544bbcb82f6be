package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/proofreader/pkg/domain"
)

const (
	// DefaultPrompt is printed before each line of input.
	DefaultPrompt = "> "
	// ContinuationPrompt is printed while a multi-line message is open.
	ContinuationPrompt = "... "
)

// TextHandler implements the standard text-based interface.
//
// A line ending in a backslash continues on the next line, so pasted
// paragraphs can be submitted as one message.
type TextHandler struct {
	Reader     *bufio.Reader
	Writer     io.Writer
	Renderer   ContentRenderer
	ErrorStyle Styler
	Prompt     string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerErrorStyle configures how failed-call messages are styled.
func WithTextHandlerErrorStyle(style Styler) TextHandlerOption {
	return func(h *TextHandler) {
		h.ErrorStyle = style
	}
}

// WithTextHandlerPrompt replaces the input prompt.
func WithTextHandlerPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: DefaultPrompt,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour context cancellation
// while a read is blocked.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, utterances []domain.Utterance) error {
	for _, u := range utterances {
		output := u.Text
		switch {
		case u.Error && h.ErrorStyle != nil:
			output = h.ErrorStyle(u.Text)
		case u.Role == domain.RoleAssistant && h.Renderer != nil:
			if rendered, err := h.Renderer(u.Text); err == nil {
				output = rendered
			}
		}
		if _, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output)); err != nil {
			return err
		}
	}
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	var message strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			if message.Len() > 0 {
				fmt.Fprint(h.Writer, ContinuationPrompt)
			} else {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			// Exit silently, the caller owns the shutdown message.
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				if message.Len() > 0 {
					return h.finish(&message)
				}
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}

			line := strings.TrimRight(res.text, "\r\n")
			if strings.HasSuffix(line, `\`) {
				message.WriteString(strings.TrimSuffix(line, `\`))
				message.WriteByte('\n')
				continue
			}
			message.WriteString(line)

			clean, err := h.finish(&message)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) finish(message *strings.Builder) (string, error) {
	text := strings.TrimSpace(message.String())
	message.Reset()
	return SanitizeInput(text)
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
