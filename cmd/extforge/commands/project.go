package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/pkg/types"
)

var (
	projectName string
	projectOut  string
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage saved projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, err := a.Projects.List(cmd.Context(), scope())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			pterm.Info.Println("No saved projects")
			return nil
		}

		rows := pterm.TableData{{"ID", "Name", "Saved", "Files", "Description"}}
		for _, s := range snaps {
			info := s.Info()
			rows = append(rows, []string{
				info.ID,
				info.Name,
				info.SavedAt.Local().Format(time.DateTime),
				pterm.Sprint(info.FileCount),
				info.Description,
			})
		}
		return printTable(rows)
	},
}

var projectSaveCmd = &cobra.Command{
	Use:   "save <dir>",
	Short: "Save an extension directory as a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		set, err := fileset.LoadDir(args[0])
		if err != nil {
			return err
		}

		sc := scope()
		ws := a.Workspace(sc)
		if err := ws.Restore(types.Snapshot{Files: set.Files()}); err != nil {
			return err
		}
		snap, err := ws.Snapshot(projectName)
		if err != nil {
			return err
		}
		saved, err := a.Projects.Save(cmd.Context(), sc, snap)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Saved project %q (%s) with %d files", saved.Name, saved.ID, len(saved.Files))
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project's files and conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Projects.Get(cmd.Context(), scope(), args[0])
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println(snap.Name)
		if snap.Description != "" {
			pterm.Println(snap.Description)
		}
		pterm.Info.Printfln("Saved %s", snap.SavedAt.Local().Format(time.DateTime))
		if err := printTable(fileRows(snap.Files)); err != nil {
			return err
		}

		pterm.DefaultSection.WithLevel(2).Println("Conversation")
		for _, m := range snap.Messages {
			if m.Role == types.RoleUser {
				pterm.FgCyan.Printfln("you: %s", m.Content)
			} else {
				pterm.FgGray.Printfln("assistant: %s", m.Content)
			}
		}
		return nil
	},
}

var projectRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Write a project's files to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Projects.Get(cmd.Context(), scope(), args[0])
		if err != nil {
			return err
		}
		if err := fileset.WriteDir(projectOut, snap.Files); err != nil {
			return err
		}
		pterm.Success.Printfln("Restored %q to %s", snap.Name, projectOut)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Projects.Delete(cmd.Context(), scope(), args[0]); err != nil {
			return err
		}
		pterm.Success.Printfln("Deleted project %s", args[0])
		return nil
	},
}

func init() {
	projectSaveCmd.Flags().StringVar(&projectName, "name", "", "Project name (default: manifest name)")
	projectRestoreCmd.Flags().StringVarP(&projectOut, "out", "o", "extension", "Directory to write the files to")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectSaveCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRestoreCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}
