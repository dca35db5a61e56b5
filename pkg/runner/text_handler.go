package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Text commands. Anything else is read as an answer for the current step.
const (
	CommandBack   = ":back"
	CommandSkip   = ":skip"
	CommandExit   = ":exit"
	CommandSubmit = ":submit"
)

// TextHandler implements the interactive terminal interface.
// Choice-like steps accept option numbers or IDs; multiple_choice accepts a
// comma-separated list. An empty line continues with the staged answer.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	last *domain.View

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the prompt renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour ctx cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			h.inputChan <- inputResult{err: err}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, view *domain.View) error {
	h.last = view

	if view.Step == nil {
		fmt.Fprintln(h.Writer, statusLine(view.Status))
		return nil
	}
	step := view.Step

	fmt.Fprintf(h.Writer, "\n[%d] %3.0f%%\n", view.Position+1, view.Progress*100)
	fmt.Fprintln(h.Writer, h.render(step.Prompt))
	if step.Subtitle != "" {
		fmt.Fprintln(h.Writer, step.Subtitle)
	}

	for i, opt := range step.Options {
		label := opt.Label
		if opt.Emoji != "" {
			label = opt.Emoji + " " + label
		}
		mark := " "
		if selected(view, opt.ID) {
			mark = "*"
		}
		fmt.Fprintf(h.Writer, " %s %d) %s\n", mark, i+1, label)
	}
	if step.Scale != nil {
		fmt.Fprintf(h.Writer, "  %d (%s) .. %d (%s)\n", step.Scale.Min, step.Scale.Labels[0], step.Scale.Max, step.Scale.Labels[1])
	}
	if step.Bounds != nil {
		fmt.Fprintf(h.Writer, "  range %g-%g\n", step.Bounds.Min, step.Bounds.Max)
	}
	if current := currentAnswer(view); current != nil && len(step.Options) == 0 {
		fmt.Fprintf(h.Writer, "  current: %v\n", current.Value())
	}

	for _, n := range view.Notices {
		fmt.Fprintf(h.Writer, "\n(!) %s\n", n.Message)
		for _, r := range n.Resources {
			fmt.Fprintf(h.Writer, "    %s: %s\n", r.Name, r.Contact)
		}
	}

	hint := CommandBack + "  " + CommandExit
	if view.Skippable {
		hint = CommandSkip + "  " + hint
	}
	fmt.Fprintf(h.Writer, "(%s)\n", hint)
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (Command, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Command{}, io.EOF
			}
			if res.err != nil {
				return Command{}, res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return h.parse(clean), nil
		}
	}
}

func (h *TextHandler) Feedback(ctx context.Context, resp *Response) error {
	switch {
	case resp.Validation != nil && resp.Validation.Error != nil:
		fmt.Fprintf(h.Writer, "! %s\n", resp.Validation.Error.Message)
	case resp.Transition != nil && resp.Transition.Error != nil:
		fmt.Fprintf(h.Writer, "! %s\n", resp.Transition.Error.Message)
	case resp.Error != "":
		fmt.Fprintf(h.Writer, "! %s (type %s to retry)\n", resp.Error, CommandSubmit)
	}
	return nil
}

// parse turns a line into a command for the last rendered view.
func (h *TextHandler) parse(line string) Command {
	switch line {
	case "":
		return Command{Action: ActionNext}
	case CommandBack:
		return Command{Action: ActionPrevious}
	case CommandSkip:
		return Command{Action: ActionSkip}
	case CommandExit:
		return Command{Action: ActionExit}
	case CommandSubmit:
		return Command{Action: ActionSubmit}
	}

	if h.last == nil || h.last.Step == nil {
		return Command{Action: ActionAnswer, Value: line}
	}
	step := h.last.Step

	switch {
	case step.Kind == domain.KindMultipleChoice:
		var ids []any
		for _, token := range strings.Split(line, ",") {
			if token = strings.TrimSpace(token); token != "" {
				ids = append(ids, optionID(*step, token))
			}
		}
		return Command{Action: ActionAnswer, Value: ids}
	case step.Kind.ChoiceLike():
		return Command{Action: ActionAnswer, Value: optionID(*step, line)}
	}
	return Command{Action: ActionAnswer, Value: line}
}

func (h *TextHandler) render(prompt string) string {
	if h.Renderer == nil {
		return strings.TrimSpace(prompt)
	}
	out, err := h.Renderer(prompt)
	if err != nil {
		return strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(out)
}

// optionID maps a 1-based option number to its ID. Other tokens are kept as typed.
func optionID(step domain.Step, token string) string {
	if n, err := strconv.Atoi(token); err == nil && n >= 1 && n <= len(step.Options) {
		return step.Options[n-1].ID
	}
	return token
}

func currentAnswer(view *domain.View) *domain.Answer {
	if view.Staged != nil {
		return view.Staged
	}
	return view.Committed
}

func selected(view *domain.View, id string) bool {
	a := currentAnswer(view)
	if a == nil {
		return false
	}
	switch a.Type {
	case domain.AnswerChoices:
		for _, c := range a.Choices {
			if c == id {
				return true
			}
		}
		return false
	case domain.AnswerMood:
		return a.Mood != nil && a.Mood.ID == id
	}
	return a.Value() == id
}

func statusLine(status domain.FlowStatus) string {
	switch status {
	case domain.StatusSubmitted:
		return "Thanks, your answers were saved."
	case domain.StatusCompleted:
		return "All done. Your answers have not been saved yet."
	case domain.StatusAbandoned:
		return "Check-in closed. Nothing was saved."
	}
	return string(status)
}
