package mcpserver

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extforge/extforge/internal/template"
)

// TestServer_MCPClient drives the stdio server with the go-sdk client.
func TestServer_MCPClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	catalog, err := template.Builtin()
	require.NoError(t, err)
	stdioServer := server.NewStdioServer(NewServer(catalog))

	serverReader, clientWriter := io.Pipe()
	clientReader, serverWriter := io.Pipe()

	go func() {
		_ = stdioServer.Listen(ctx, serverReader, serverWriter)
	}()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, &sdkmcp.IOTransport{
		Reader: clientReader,
		Writer: clientWriter,
	}, nil)
	require.NoError(t, err, "failed to connect client to server")
	defer session.Close()

	listResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"compose_preview", "extract_permissions", "list_templates"}, names)

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "compose_preview",
		Arguments: map[string]any{"files": popupFiles},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)

	textContent, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "content should be TextContent")
	assert.Equal(t, "<h1>Hi</h1><script>let x = 1;</script>", textContent.Text)

	cancel()
	clientWriter.Close()
	serverWriter.Close()
}
