/*
Package runner implements the interactive chat loop for the proofreader engine.

It bridges the engine and a terminal (or any line-oriented stream): it reads
user messages, drives Submit and Reset, and prints the assistant replies
through a pluggable IOHandler.

# Key Components

  - Runner: the chat loop. Handles /clear, /help, exit and quit.
  - IOHandler: decouples how messages are read and shown (Text, JSON).
  - TextHandler: interactive terminal usage with optional markdown rendering.
  - JSONHandler: JSON-Lines for scripting and piping.
  - SanitizeInput: size limit, UTF-8 check and control-character stripping.

# Usage

	r := runner.NewRunner(engine,
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
