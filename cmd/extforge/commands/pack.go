package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/archive"
	"github.com/extforge/extforge/internal/fileset"
)

var packOut string

var packCmd = &cobra.Command{
	Use:   "pack <dir>",
	Short: "Package an extension directory as a zip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := fileset.LoadDir(args[0])
		if err != nil {
			return err
		}
		if set.Empty() {
			pterm.Warning.Printfln("%s has no files to pack", args[0])
			return nil
		}

		f, err := os.Create(packOut)
		if err != nil {
			return err
		}
		if err := archive.Write(f, set.Files()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		pterm.Success.Printfln("Packed %d files into %s", set.Len(), packOut)
		return nil
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOut, "out", "o", archive.DefaultName, "Archive path")
}
