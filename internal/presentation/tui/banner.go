package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the stepwise ASCII art banner to w.
func PrintBanner(w io.Writer, title string) {
	p := termenv.ColorProfile()
	// Calm gradient (Teal/Sky)
	lines := []struct {
		text  string
		color string
	}{
		{"      _                       _          ", "#2dd4bf"},
		{"  ___| |_ ___ _ ____      __ (_)___  ___ ", "#22d3ee"},
		{" / __| __/ _ \\ '_ \\ \\ /\\ / / | / __|/ _ \\", "#38bdf8"},
		{" \\__ \\ ||  __/ |_) \\ V  V /  | \\__ \\  __/", "#60a5fa"},
		{" |___/\\__\\___| .__/ \\_/\\_/   |_|___/\\___|", "#818cf8"},
		{"             |_|                          ", "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if title != "" {
		fmt.Fprintln(w, termenv.String("  "+title).Bold())
	}
	fmt.Fprintln(w)
}
