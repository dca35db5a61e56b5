package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each view and each command outcome is written as one JSON object per line.
// Input lines are commands ({"action":"answer","value":"calm"}); a bare JSON
// string or plain text line is read as an answer.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// Message is one line written by JSONHandler.
type Message struct {
	Type     string       `json:"type"` // "view" or "result"
	View     *domain.View `json:"view,omitempty"`
	Response *Response    `json:"response,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, view *domain.View) error {
	return h.Encoder.Encode(Message{Type: "view", View: view})
}

func (h *JSONHandler) Feedback(ctx context.Context, resp *Response) error {
	// The view follows in the next Output call.
	out := *resp
	out.View = nil
	return h.Encoder.Encode(Message{Type: "result", Response: &out})
}

func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return Command{}, err
			}
			continue
		}

		var cmd Command
		if jerr := json.Unmarshal([]byte(text), &cmd); jerr == nil && cmd.Action != "" {
			return cmd, nil
		}

		var val string
		if jerr := json.Unmarshal([]byte(text), &val); jerr == nil {
			return Command{Action: ActionAnswer, Value: val}, nil
		}
		return Command{Action: ActionAnswer, Value: text}, nil
	}
}
