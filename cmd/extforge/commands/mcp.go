package commands

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve extforge tools over MCP on stdio",
	Long: `Expose compose_preview, extract_permissions and list_templates as
Model Context Protocol tools on stdin/stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return server.ServeStdio(mcpserver.NewServer(a.Templates))
	},
}
