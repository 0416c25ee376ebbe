package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/repl"
)

var (
	chatJSON     bool
	chatVerbose  bool
	chatNoColor  bool
	chatQuiet    bool
	chatTemplate string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build an extension interactively",
	Long: `Start an interactive conversation with the generation model. Type a
request to build or change the extension, or /help for commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "Emit one JSON object per line")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Print trace output")
	chatCmd.Flags().BoolVar(&chatNoColor, "no-color", false, "Disable colored output")
	chatCmd.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "Suppress banner and info lines")
	chatCmd.Flags().StringVarP(&chatTemplate, "template", "t", "", "Start from a template")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ws := a.Workspace(scope())
	if chatTemplate != "" {
		t, err := a.Templates.Get(chatTemplate)
		if err != nil {
			return err
		}
		if err := ws.LoadTemplate(t); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	interactive := isatty.IsTerminal(os.Stdin.Fd())
	session := &repl.Session{
		Workspace: ws,
		Templates: a.Templates,
		Projects:  a.Projects,
		Renderer: repl.NewRenderer(repl.Options{
			NoColor: chatNoColor || chatJSON || !interactive,
			Quiet:   chatQuiet,
			JSON:    chatJSON,
			Verbose: chatVerbose,
		}, out, cmd.ErrOrStderr()),
		Out: out,
	}
	if interactive && !chatJSON {
		session.Prompt = "extforge> "
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return session.Run(ctx, cmd.InOrStdin())
}
