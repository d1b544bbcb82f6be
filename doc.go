/*
Package proofreader is a conversational proofreading engine.

A conversation alternates between two modes. In the first, the user pastes text
and the engine asks a language model to list its grammar, spelling and tense
mistakes, then offers an error-free version. In the second, the user's reply is
read as a yes/no answer: an affirmative reply triggers a second model call that
returns the corrected text, anything else declines the offer. Either way the
conversation returns to waiting for new text.

The Engine persists each session through a ports.SessionStore and serialises
turns per session, so the same conversation can be driven from a terminal, an
HTTP API or an MCP client.

# Usage

	gen, err := anyllm.New(anyllm.Config{Provider: "gemini", APIKey: key})
	if err != nil {
		log.Fatal(err)
	}
	eng, err := proofreader.New(gen)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	session, err := eng.Submit(ctx, "demo", "I has a apple")
	if err != nil {
		log.Fatal(err)
	}
	last, _ := session.Transcript.Last()
	fmt.Println(last.Text) // mistakes found, followed by the correction offer

	session, err = eng.Submit(ctx, "demo", "yes")
	// session.Transcript now ends with the corrected text.
*/
package proofreader
