package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/archive"
	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/manifest"
	"github.com/extforge/extforge/internal/workspace"
)

var (
	genOut      string
	genTemplate string
	genProject  string
	genZip      string
	genSave     bool
	genName     string
)

var generateCmd = &cobra.Command{
	Use:   "generate [request...]",
	Short: "Generate an extension from a description",
	Long: `Generate a Chrome extension and write its files to disk.

Examples:
  extforge generate "a popup that shows a pomodoro timer"
  extforge generate --template page-word-counter "also count sentences"
  extforge generate --project 01J... "make the button blue" --save`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "extension", "Directory to write the files to")
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "", "Start from a template")
	generateCmd.Flags().StringVarP(&genProject, "project", "p", "", "Continue a saved project")
	generateCmd.Flags().StringVar(&genZip, "zip", "", "Also write a zip archive to this path")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "Save the result as a project")
	generateCmd.Flags().StringVar(&genName, "name", "", "Project name when saving (default: manifest name)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" && genTemplate == "" && genProject == "" {
		return errors.New("describe the extension to build, or pass --template or --project")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sc := scope()
	ws := a.Workspace(sc)

	if genProject != "" {
		snap, err := a.Projects.Get(ctx, sc, genProject)
		if err != nil {
			return err
		}
		if err := ws.Restore(snap); err != nil {
			return err
		}
	}
	if genTemplate != "" {
		t, err := a.Templates.Get(genTemplate)
		if err != nil {
			return err
		}
		if err := ws.LoadTemplate(t); err != nil {
			return err
		}
	}

	if request != "" {
		if err := generate(ctx, ws, request); err != nil {
			return err
		}
	}

	set := ws.Files()
	if err := fileset.WriteDir(genOut, set.Files()); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %d files to %s", set.Len(), genOut)

	if perms := manifest.PermissionStrings(set); len(perms) > 0 {
		pterm.Info.Printfln("Permissions: %s", strings.Join(perms, ", "))
	}

	if genZip != "" {
		data, err := archive.Bytes(set.Files())
		if err != nil {
			return err
		}
		if err := os.WriteFile(genZip, data, 0644); err != nil {
			return err
		}
		pterm.Success.Printfln("Packed %s", genZip)
	}

	if genSave {
		snap, err := ws.Snapshot(genName)
		if err != nil {
			return err
		}
		saved, err := a.Projects.Save(ctx, sc, snap)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Saved project %q (%s)", saved.Name, saved.ID)
	}
	return nil
}

// generate runs one round behind a spinner and prints the per-file changes.
func generate(ctx context.Context, ws *workspace.Workspace, request string) error {
	spinner, _ := pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithRemoveWhenDone(true).
		Start("Generating extension...")
	round, err := ws.Send(ctx, request)
	spinner.Stop()
	if err != nil {
		return err
	}

	if len(round.Changes) == 0 {
		pterm.Info.Println("No files changed")
		return nil
	}
	return printTable(changeRows(round.Changes))
}
