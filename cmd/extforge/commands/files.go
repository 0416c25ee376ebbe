package commands

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/pkg/types"
)

func changeRows(changes []fileset.Change) pterm.TableData {
	rows := pterm.TableData{{"File", "Change", "+", "-"}}
	for _, c := range changes {
		rows = append(rows, []string{c.Filename, string(c.Kind), strconv.Itoa(c.Additions), strconv.Itoa(c.Deletions)})
	}
	return rows
}

func fileRows(files []types.File) pterm.TableData {
	rows := pterm.TableData{{"File", "Bytes"}}
	for _, f := range files {
		rows = append(rows, []string{f.Filename, strconv.Itoa(len(f.Content))})
	}
	return rows
}
