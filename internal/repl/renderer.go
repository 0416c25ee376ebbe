package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/pkg/types"
)

// Options controls how the conversation is rendered.
type Options struct {
	NoColor bool
	Quiet   bool
	JSON    bool
	Verbose bool
}

// Renderer prints the conversation and round results.
type Renderer struct {
	opts   Options
	out    io.Writer
	errOut io.Writer
}

// NewRenderer writes conversation output to out and diagnostics to errOut.
func NewRenderer(opts Options, out, errOut io.Writer) *Renderer {
	color.NoColor = opts.NoColor
	return &Renderer{opts: opts, out: out, errOut: errOut}
}

func (r *Renderer) emit(v map[string]any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(r.out, string(b))
}

func (r *Renderer) Banner(scope string) {
	if r.opts.Quiet || r.opts.JSON {
		return
	}
	fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprintf("extforge chat (%s), /help for commands", scope))
}

func (r *Renderer) Help(text string) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintln(r.out, text)
}

func (r *Renderer) User(input string) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "user", "text": input})
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.FgCyan, color.Bold).Sprint("you ›"), input)
}

func (r *Renderer) Assistant(message string) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "assistant", "text": message})
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("assistant ›"), message)
}

// Conversation replays messages, e.g. after a restore.
func (r *Renderer) Conversation(messages []types.Message) {
	for _, m := range messages {
		if m.Role == types.RoleUser {
			r.User(m.Content)
		} else {
			r.Assistant(m.Content)
		}
	}
}

// Changes prints a round's per-file diff.
func (r *Renderer) Changes(changes []fileset.Change) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "changes", "changes": changes})
		return
	}
	for _, c := range changes {
		var mark *color.Color
		switch c.Kind {
		case fileset.Added:
			mark = color.New(color.FgGreen)
		case fileset.Removed:
			mark = color.New(color.FgRed)
		default:
			mark = color.New(color.FgYellow)
		}
		fmt.Fprintf(r.out, "  %s %s %s\n",
			mark.Sprintf("%-8s", c.Kind),
			c.Filename,
			color.New(color.FgHiBlack).Sprintf("+%d -%d", c.Additions, c.Deletions))
	}
}

// Files lists filenames, marking the selected one.
func (r *Renderer) Files(names []string, selected string) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "files", "files": names, "selected": selected})
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(r.out, color.New(color.FgHiBlack).Sprint("  (no files yet)"))
		return
	}
	for _, n := range names {
		if n == selected {
			fmt.Fprintf(r.out, "%s %s\n", color.New(color.FgCyan).Sprint("*"), n)
		} else {
			fmt.Fprintf(r.out, "  %s\n", n)
		}
	}
}

// File prints one file's content.
func (r *Renderer) File(f types.File) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "file", "filename": f.Filename, "content": f.Content})
		return
	}
	fmt.Fprintln(r.out, color.New(color.FgHiBlack).Sprintf("── %s ──", f.Filename))
	fmt.Fprintln(r.out, strings.TrimRight(f.Content, "\n"))
}

func (r *Renderer) Info(format string, args ...any) {
	if r.opts.Quiet {
		return
	}
	if r.opts.JSON {
		r.emit(map[string]any{"type": "info", "text": fmt.Sprintf(format, args...)})
		return
	}
	fmt.Fprintln(r.out, color.New(color.FgHiBlack).Sprintf(format, args...))
}

func (r *Renderer) Error(err error) {
	if r.opts.JSON {
		r.emit(map[string]any{"type": "error", "text": err.Error()})
		return
	}
	fmt.Fprintln(r.errOut, color.New(color.FgRed).Sprintf("error: %v", err))
}

func (r *Renderer) Trace(msg string, details map[string]any) {
	if !r.opts.Verbose {
		return
	}
	if details != nil {
		fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprintf("[trace] %s %v", msg, details))
	} else {
		fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprintf("[trace] %s", msg))
	}
}
