package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// printMarkdown renders advice for the terminal. Output that is not a
// terminal gets the plain markdown.
func (c *CLI) printMarkdown(text string) error {
	if c.out != os.Stdout || !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := fmt.Fprintln(c.out, text)
		return err
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w-4, 120)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(c.out, out)
	return err
}
