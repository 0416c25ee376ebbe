// Package commands provides the CLI commands for extforge.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/app"
	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/internal/identity"
	"github.com/extforge/extforge/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs   bool
	logLevel    string
	identityArg string
	workDirArg  string
)

var rootCmd = &cobra.Command{
	Use:   "extforge",
	Short: "extforge - build Chrome extensions by describing them",
	Long: `extforge turns natural-language requests into working Chrome extensions.
It keeps a conversation with a generation model, previews the result and
saves it as a project you can come back to.

Run 'extforge generate "..."' for a one-shot build, or 'extforge serve'
to start the HTTP API.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&identityArg, "identity", "", "Act as this user (email or id); anonymous when empty")
	rootCmd.PersistentFlags().StringVar(&workDirArg, "directory", "", "Working directory")

	rootCmd.SetVersionTemplate(fmt.Sprintf("extforge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads .env files and configures logging. Logs go to the log file
// unless --print-logs is set.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg := logging.Config{
		Level:     logging.ParseLevel(logLevel),
		Output:    io.Discard,
		LogToFile: true,
		LogDir:    config.GetPaths().LogDir(),
	}
	if printLogs {
		cfg.Output = os.Stderr
		cfg.Pretty = true
	}
	return logging.Init(cfg)
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// scope is the storage scope of the --identity user.
func scope() string {
	return identity.FromString(identityArg).Scope()
}

func newApp() (*app.App, error) {
	workDir, err := GetWorkDir(workDirArg)
	if err != nil {
		return nil, err
	}
	return app.New(workDir)
}

// printTable renders rows with the first row as header.
func printTable(rows pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
