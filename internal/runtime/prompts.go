package runtime

import (
	"bytes"
	"fmt"
	"text/template"
)

// Default request templates. Both receive {{.Text}}.
const (
	DefaultFindMistakesTemplate = `Analyze this text for grammar, spelling, and verb tense errors, do not try to change the tone etc. Proofreading is the job of yours.

Format your response EXACTLY like this - each mistake on its own line with a line break between them:

**Mistakes Found:**

1. "mistake" → "correction" (one line reason atleast)

2. "mistake" → "correction" (one line reason atleast)

Keep each mistake on ONE line. Use numbered list. Be brief.

Text: {{.Text}}`

	DefaultCorrectionTemplate = `Provide ONLY the corrected version of this text and a short explanation of what did you change and why, with a bold explanation label, just the clean corrected text.

Original: {{.Text}}`
)

// Default fixed assistant texts.
const (
	DefaultOffer            = "\n\n---\n\n**Would you like me to generate an error-free version of your text?**"
	DefaultCorrectionHeader = "**Here's your error-free version:**\n\n"
	DefaultDecline          = "No problem! Feel free to paste new text whenever you're ready. 😊"
	DefaultServiceError     = "Sorry, I couldn't reach the proofreading service. Please try again."
)

// Prompts holds every fixed text the controller sends or shows.
// Zero fields fall back to the defaults above.
type Prompts struct {
	FindMistakes     string `yaml:"find_mistakes"`
	Correction       string `yaml:"correction"`
	Offer            string `yaml:"offer"`
	CorrectionHeader string `yaml:"correction_header"`
	Decline          string `yaml:"decline"`
	ServiceError     string `yaml:"service_error"`
}

// DefaultPrompts returns the stock proofreading texts.
func DefaultPrompts() Prompts {
	return Prompts{
		FindMistakes:     DefaultFindMistakesTemplate,
		Correction:       DefaultCorrectionTemplate,
		Offer:            DefaultOffer,
		CorrectionHeader: DefaultCorrectionHeader,
		Decline:          DefaultDecline,
		ServiceError:     DefaultServiceError,
	}
}

// withDefaults fills empty fields from DefaultPrompts.
func (p Prompts) withDefaults() Prompts {
	d := DefaultPrompts()
	if p.FindMistakes == "" {
		p.FindMistakes = d.FindMistakes
	}
	if p.Correction == "" {
		p.Correction = d.Correction
	}
	if p.Offer == "" {
		p.Offer = d.Offer
	}
	if p.CorrectionHeader == "" {
		p.CorrectionHeader = d.CorrectionHeader
	}
	if p.Decline == "" {
		p.Decline = d.Decline
	}
	if p.ServiceError == "" {
		p.ServiceError = d.ServiceError
	}
	return p
}

// requestTemplates are the parsed forms of the two model requests.
type requestTemplates struct {
	findMistakes *template.Template
	correction   *template.Template
}

func parseTemplates(p Prompts) (*requestTemplates, error) {
	find, err := template.New("find_mistakes").Option("missingkey=error").Parse(p.FindMistakes)
	if err != nil {
		return nil, fmt.Errorf("invalid find_mistakes template: %w", err)
	}
	correct, err := template.New("correction").Option("missingkey=error").Parse(p.Correction)
	if err != nil {
		return nil, fmt.Errorf("invalid correction template: %w", err)
	}
	return &requestTemplates{findMistakes: find, correction: correct}, nil
}

func execute(t *template.Template, text string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", fmt.Errorf("rendering %s request: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// ValidatePrompts parses the request templates without building a controller.
func ValidatePrompts(p Prompts) error {
	_, err := parseTemplates(p.withDefaults())
	return err
}
