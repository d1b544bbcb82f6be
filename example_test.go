package proofreader_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/pkg/ports"
)

// ExampleNew runs one full proofreading exchange against a canned model.
func ExampleNew() {
	model := ports.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Analyze") {
			return `1. "has" → "have" (first person)`, nil
		}
		return "I have an apple.", nil
	})

	eng, err := proofreader.New(model)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	s, err := eng.Submit(ctx, "example", "I has a apple")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(s.Mode)

	s, err = eng.Submit(ctx, "example", "Sure, go ahead")
	if err != nil {
		log.Fatal(err)
	}
	last, _ := s.Transcript.Last()
	fmt.Println(s.Mode)
	fmt.Println(strings.TrimPrefix(last.Text, "**Here's your error-free version:**\n\n"))

	// Output:
	// awaiting_correction_answer
	// awaiting_text
	// I have an apple.
}
