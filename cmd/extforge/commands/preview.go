package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/preview"
	"github.com/extforge/extforge/internal/watch"
)

var (
	previewFormat string
	previewOut    string
	previewOpen   bool
	previewWatch  bool
	previewReport bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <dir>",
	Short: "Render an extension directory as a single self-contained page",
	Long: `Inline the scripts and stylesheets of an extension's entry page
(popup.html, index.html, or the first .html file) into one document.

With --open the page is written to a file and opened in the browser.
With --watch the file is rewritten whenever the directory changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewFormat, "format", "f", "html", "Output format (html|markdown)")
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Write the preview to this file instead of stdout")
	previewCmd.Flags().BoolVar(&previewOpen, "open", false, "Open the preview in the browser")
	previewCmd.Flags().BoolVarP(&previewWatch, "watch", "w", false, "Rewrite the preview when files change")
	previewCmd.Flags().BoolVar(&previewReport, "report", false, "List the entry page's script and stylesheet references")
}

func runPreview(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if previewFormat != "html" && previewFormat != "markdown" {
		return fmt.Errorf("unknown format %q", previewFormat)
	}

	set, err := fileset.LoadDir(dir)
	if err != nil {
		return err
	}

	if previewReport {
		return printReport(set)
	}

	if previewOut == "" && !previewOpen && !previewWatch {
		doc, err := renderPreview(set, previewFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), doc)
		return nil
	}

	path := previewOut
	if path == "" {
		f, err := os.CreateTemp("", "extforge-preview-*."+previewExt(previewFormat))
		if err != nil {
			return err
		}
		f.Close()
		path = f.Name()
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}
	if err := writePreview(path, set); err != nil {
		return err
	}
	pterm.Success.Printfln("Preview written to %s", path)

	if previewOpen {
		_ = browser.OpenFile(path)
	}
	if !previewWatch {
		return nil
	}

	w, err := watch.New(dir, 0, func(set *fileset.Set, err error) {
		if err != nil {
			pterm.Error.Printfln("Reload failed: %v", err)
			return
		}
		if err := writePreview(path, set); err != nil {
			pterm.Error.Printfln("Preview failed: %v", err)
			return
		}
		pterm.Info.Printfln("Preview updated (%d files)", set.Len())
	})
	if err != nil {
		return err
	}
	w.Start()
	defer w.Stop()

	pterm.Info.Printfln("Watching %s, press Ctrl+C to stop", dir)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}

func renderPreview(set *fileset.Set, format string) (string, error) {
	doc := preview.Compose(set)
	if format == "markdown" {
		return preview.Markdown(doc)
	}
	return doc, nil
}

func writePreview(path string, set *fileset.Set) error {
	doc, err := renderPreview(set, previewFormat)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0644)
}

func previewExt(format string) string {
	if format == "markdown" {
		return "md"
	}
	return "html"
}

func printReport(set *fileset.Set) error {
	report, err := preview.Analyze(set)
	if err != nil {
		return err
	}
	if report.EntryPage == "" {
		pterm.Warning.Println("No HTML entry page; the preview shows the fallback document")
		return nil
	}

	pterm.Info.Printfln("Entry page: %s", report.EntryPage)
	rows := pterm.TableData{{"Kind", "Reference", "Resolved", "Did you mean"}}
	for _, r := range report.References {
		rows = append(rows, []string{string(r.Kind), r.Ref, strconv.FormatBool(r.Resolved), r.Suggestion})
	}
	return printTable(rows)
}
