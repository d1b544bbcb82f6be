package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Welcome is the first assistant message of a chat.
const Welcome = "Hi! Paste any text and I'll point out its grammar, spelling and tense mistakes. " +
	"Type `/help` for commands."

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ___                __                    _`, "#34d399"},
	{` | _ \_ _ ___  ___  / _|_ _ ___ __ _ __| |___ _ _`, "#2dd4bf"},
	{` |  _/ '_/ _ \/ _ \|  _| '_/ -_) _' / _' / -_) '_|`, "#22d3ee"},
	{` |_| |_| \___/\___/|_| |_| \___\__,_\__,_\___|_|`, "#38bdf8"},
}

// PrintBanner writes the coloured title banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(p.Color(line.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}

// ErrorStyle returns a styler that paints failed-call messages red on w.
func ErrorStyle(w io.Writer) func(string) string {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	return func(s string) string {
		return out.String(s).Foreground(p.Color("#f87171")).Bold().String()
	}
}
