// Package mcpserver exposes the preview composer, the manifest inspector
// and the template catalog as MCP tools, so an editor agent can check a
// generated extension without running the HTTP server.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/extforge/extforge/internal/fileset"
	"github.com/extforge/extforge/internal/manifest"
	"github.com/extforge/extforge/internal/preview"
	"github.com/extforge/extforge/internal/template"
	"github.com/extforge/extforge/pkg/types"
)

// Name and Version identify the server during MCP initialization.
const (
	Name    = "extforge"
	Version = "1.0.0"
)

// fileItems is the JSON schema of one element of a "files" argument.
var fileItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"filename": map[string]any{"type": "string"},
		"content":  map[string]any{"type": "string"},
	},
	"required": []string{"filename", "content"},
}

// NewServer creates an MCP server with the extforge tools.
func NewServer(catalog *template.Catalog) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
	)

	composeTool := mcp.NewTool("compose_preview",
		mcp.WithDescription("Composes the preview document of a Chrome extension: the first .html file with its same-extension scripts and stylesheets inlined"),
		mcp.WithArray("files",
			mcp.Required(),
			mcp.Description("The extension's files"),
			mcp.Items(fileItems),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("html", "markdown"),
		),
	)
	s.AddTool(composeTool, composeHandler)

	permissionsTool := mcp.NewTool("extract_permissions",
		mcp.WithDescription("Lists the permissions declared in the extension's manifest.json"),
		mcp.WithArray("files",
			mcp.Required(),
			mcp.Description("The extension's files"),
			mcp.Items(fileItems),
		),
	)
	s.AddTool(permissionsTool, permissionsHandler)

	templatesTool := mcp.NewTool("list_templates",
		mcp.WithDescription("Lists the starter extension templates"),
	)
	s.AddTool(templatesTool, templatesHandler(catalog))

	return s
}

func composeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := filesArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc := preview.Compose(set)
	switch request.GetString("format", "html") {
	case "html":
		return mcp.NewToolResultText(doc), nil
	case "markdown":
		md, err := preview.Markdown(doc)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render markdown: %v", err)), nil
		}
		return mcp.NewToolResultText(md), nil
	default:
		return mcp.NewToolResultError("format must be html or markdown"), nil
	}
}

func permissionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := filesArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(manifest.ExtractPermissions(set))
}

type templateSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Files       int    `json:"files"`
}

func templatesHandler(catalog *template.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list := catalog.List()
		out := make([]templateSummary, len(list))
		for i, t := range list {
			out[i] = templateSummary{ID: t.ID, Title: t.Title, Description: t.Description, Files: len(t.Files)}
		}
		return jsonResult(out)
	}
}

// filesArg decodes the "files" argument into a file set.
func filesArg(request mcp.CallToolRequest) (*fileset.Set, error) {
	raw, ok := request.GetArguments()["files"]
	if !ok {
		return nil, fmt.Errorf("files argument is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid files: %v", err)
	}
	var files []types.File
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("invalid files: %v", err)
	}
	return fileset.New(files...), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
