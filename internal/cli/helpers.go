package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/stepwise/internal/logging"
	"golang.org/x/term"
)

// NewLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func NewLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
