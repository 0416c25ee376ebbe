package repl

import "strings"

const helpText = `Chat commands:
  /help                 Show this message
  /exit                 Quit
  /new <request>        Start a new conversation with request
  /reset                Clear the conversation and files
  /templates            List templates
  /template <id>        Load a template
  /files                List the current files
  /show <file>          Print a file
  /write <dir>          Write the files to dir
  /save [name]          Save the workspace as a project
  /projects             List saved projects
  /open <id>            Restore a saved project
  /permissions          Show the manifest's permissions
  /preview <path>       Write the preview page to path

End a line with \ to continue the request on the next line.`

type commandResult struct {
	Type string
	Arg  string
}

func parseCommand(input string) commandResult {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(parts) == 0 {
		return commandResult{Type: "unknown", Arg: input}
	}
	arg := strings.Join(parts[1:], " ")
	switch parts[0] {
	case "exit", "quit":
		return commandResult{Type: "exit"}
	case "help", "?":
		return commandResult{Type: "help"}
	case "new", "reset", "templates", "template", "files", "show", "write", "save", "projects", "open", "permissions", "preview":
		return commandResult{Type: parts[0], Arg: arg}
	default:
		return commandResult{Type: "unknown", Arg: input}
	}
}

// needsArg lists the commands that cannot run without an argument.
var needsArg = map[string]string{
	"new":      "/new <request>",
	"template": "/template <id>",
	"show":     "/show <file>",
	"write":    "/write <dir>",
	"open":     "/open <id>",
	"preview":  "/preview <path>",
}
