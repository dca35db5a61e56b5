package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders step prompts as markdown using glamour.
// When the renderer cannot be built the text is passed through untouched.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
