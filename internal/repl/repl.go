// Package repl is the interactive chat loop behind "extforge chat".
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/manifest"
	"github.com/extforge/extforge/internal/project"
	"github.com/extforge/extforge/internal/template"
	"github.com/extforge/extforge/internal/workspace"
)

// Session holds what the loop drives.
type Session struct {
	Workspace *workspace.Workspace
	Templates *template.Catalog
	Projects  *project.Store
	Renderer  *Renderer
	// Prompt is written before each line. Empty disables prompting.
	Prompt string
	Out    io.Writer
}

func (s *Session) prompt(continuation bool) {
	if s.Prompt == "" || s.Out == nil {
		return
	}
	if continuation {
		fmt.Fprint(s.Out, "... ")
		return
	}
	fmt.Fprint(s.Out, s.Prompt)
}

func (s *Session) readMultiline(reader *bufio.Reader) (string, error) {
	var lines []string
	for {
		s.prompt(len(lines) > 0)
		line, err := reader.ReadString('\n')
		if err != nil {
			line = strings.TrimRight(line, "\r\n")
			if line != "" {
				lines = append(lines, line)
			}
			if len(lines) == 0 {
				return "", err
			}
			return strings.Join(lines, "\n"), nil
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasSuffix(line, "\\") {
			lines = append(lines, strings.TrimSuffix(line, "\\"))
			continue
		}
		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}

// Run reads requests and slash commands from in until /exit, EOF, or ctx
// is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.Renderer.Banner(s.Workspace.Scope())
	s.Renderer.Conversation(s.Workspace.View().Messages)
	reader := bufio.NewReader(in)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.readMultiline(reader)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			cmd := parseCommand(trimmed)
			if cmd.Type == "exit" {
				return nil
			}
			if err := s.command(ctx, cmd); err != nil {
				s.Renderer.Error(err)
			}
			continue
		}

		s.send(ctx, trimmed, false)
	}
}

func (s *Session) send(ctx context.Context, input string, fresh bool) {
	s.Renderer.User(input)
	s.Renderer.Trace("generating", map[string]any{"fresh": fresh})

	var round *workspace.Round
	var err error
	if fresh {
		round, err = s.Workspace.StartNew(ctx, input)
	} else {
		round, err = s.Workspace.Send(ctx, input)
	}
	view := s.Workspace.View()
	if n := len(view.Messages); n > 0 {
		s.Renderer.Assistant(view.Messages[n-1].Content)
	}
	if err != nil {
		s.Renderer.Trace("round failed", map[string]any{"error": err.Error()})
		return
	}
	s.Renderer.Changes(round.Changes)
}

func (s *Session) command(ctx context.Context, cmd commandResult) error {
	if usage, ok := needsArg[cmd.Type]; ok && cmd.Arg == "" {
		return fmt.Errorf("usage: %s", usage)
	}
	ws := s.Workspace

	switch cmd.Type {
	case "help":
		s.Renderer.Help(helpText)
	case "new":
		s.send(ctx, cmd.Arg, true)
	case "reset":
		if err := ws.Reset(); err != nil {
			return err
		}
		s.Renderer.Assistant(workspace.Greeting)
	case "templates":
		for _, t := range s.Templates.List() {
			s.Renderer.Info("%-16s %s", t.ID, t.Title)
		}
	case "template":
		t, err := s.Templates.Get(cmd.Arg)
		if err != nil {
			return err
		}
		if err := ws.LoadTemplate(t); err != nil {
			return err
		}
		view := ws.View()
		s.Renderer.Assistant(view.Messages[len(view.Messages)-1].Content)
		s.Renderer.Files(ws.Files().Names(), ws.Selected())
	case "files":
		s.Renderer.Files(ws.Files().Names(), ws.Selected())
	case "show":
		f, ok := ws.Files().Resolve(cmd.Arg)
		if !ok {
			return fmt.Errorf("no file named %q", cmd.Arg)
		}
		ws.Select(f.Filename)
		s.Renderer.File(f)
	case "write":
		files := ws.Files().Files()
		if len(files) == 0 {
			return workspace.ErrNothingToSave
		}
		if err := fileset.WriteDir(cmd.Arg, files); err != nil {
			return err
		}
		s.Renderer.Info("wrote %d files to %s", len(files), cmd.Arg)
	case "save":
		snap, err := ws.Snapshot(cmd.Arg)
		if err != nil {
			return err
		}
		saved, err := s.Projects.Save(ctx, ws.Scope(), snap)
		if err != nil {
			return err
		}
		s.Renderer.Info("saved %q as %s", saved.Name, saved.ID)
	case "projects":
		snaps, err := s.Projects.List(ctx, ws.Scope())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			s.Renderer.Info("no saved projects")
		}
		for _, snap := range snaps {
			s.Renderer.Info("%s  %s", snap.ID, snap.Name)
		}
	case "open":
		snap, err := s.Projects.Get(ctx, ws.Scope(), cmd.Arg)
		if err != nil {
			return err
		}
		if err := ws.Restore(snap); err != nil {
			return err
		}
		s.Renderer.Conversation(snap.Messages)
		s.Renderer.Files(ws.Files().Names(), ws.Selected())
	case "permissions":
		perms := manifest.PermissionStrings(ws.Files())
		if len(perms) == 0 {
			s.Renderer.Info("no permissions requested")
			return nil
		}
		s.Renderer.Info("%s", strings.Join(perms, ", "))
	case "preview":
		if err := os.WriteFile(cmd.Arg, []byte(ws.Preview()), 0644); err != nil {
			return err
		}
		s.Renderer.Info("wrote preview to %s", cmd.Arg)
	default:
		s.Renderer.Help(fmt.Sprintf("Unknown command: %s\n%s", cmd.Arg, helpText))
	}
	return nil
}
