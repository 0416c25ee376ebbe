package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/fileset"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Browse starter templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rows := pterm.TableData{{"ID", "Title", "Files", "Description"}}
		for _, t := range a.Templates.List() {
			rows = append(rows, []string{t.ID, t.Title, strconv.Itoa(len(t.Files)), t.Description})
		}
		return printTable(rows)
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template, optionally writing its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Templates.Get(args[0])
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println(t.Title)
		pterm.Println(t.Description)
		pterm.Info.Printfln("Prompt: %s", t.InitialPrompt)
		if err := printTable(fileRows(t.Files)); err != nil {
			return err
		}

		if templateOut != "" {
			if err := fileset.WriteDir(templateOut, t.Files); err != nil {
				return err
			}
			pterm.Success.Printfln("Wrote %d files to %s", len(t.Files), templateOut)
		}
		return nil
	},
}

func init() {
	templateShowCmd.Flags().StringVarP(&templateOut, "out", "o", "", "Write the template files to this directory")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
}
