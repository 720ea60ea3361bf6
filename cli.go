package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// runInteractiveCLI starts an interactive command-line interface so the
// session can be driven without an MCP client attached.
func (a *App) runInteractiveCLI(ctx context.Context) {
	fmt.Println(WelcomeMsg)
	fmt.Println(HelpMsg)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n" + PromptStr)
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := strings.ToLower(parts[0])
		switch cmd {
		case "exit":
			return

		case "scan":
			a.cliCall(ctx, a.scanRoomHandler, nil)

		case "ask":
			if len(parts) < 2 {
				fmt.Println("Usage: ask <question>")
				continue
			}
			a.cliCall(ctx, a.askAssistantHandler, map[string]any{"question": strings.Join(parts[1:], " ")})

		case "tips":
			a.cliCall(ctx, a.askAssistantHandler, map[string]any{"question": "Give me lighting tips for this room."})

		case "rate":
			a.cliCall(ctx, a.askAssistantHandler, map[string]any{"question": "Rate my space and tell me what stands out."})

		case "suggest":
			a.cliCall(ctx, a.suggestProductsHandler, map[string]any{"context": strings.Join(parts[1:], " ")})

		case "preview":
			if len(parts) < 2 {
				fmt.Println("Usage: preview <suggestion-id>")
				continue
			}
			a.cliCall(ctx, a.previewProductHandler, map[string]any{"id": parts[1]})

		case "objects":
			a.cliCall(ctx, a.listObjectsHandler, nil)

		case "select":
			if len(parts) < 2 {
				fmt.Println("Usage: select <name>")
				continue
			}
			a.cliCall(ctx, a.selectObjectHandler, map[string]any{"name": strings.Join(parts[1:], " ")})

		case "style":
			if len(parts) < 2 {
				fmt.Println("Usage: style <preset>  (presets:", styleList()+")")
				continue
			}
			a.cliCall(ctx, a.setStyleHandler, map[string]any{"style": parts[1]})

		case "apply":
			a.cliCall(ctx, a.applyStyleHandler, styleArgs(parts[1:], a))

		case "upgrade":
			a.cliCall(ctx, a.upgradeStyleHandler, styleArgs(parts[1:], a))

		case "retry":
			a.cliCall(ctx, a.retryUpgradeHandler, nil)

		case "overlays":
			a.cliOverlays()

		case "clear":
			a.cliCall(ctx, a.clearOverlaysHandler, nil)

		case "render":
			args := map[string]any{}
			if len(parts) > 1 {
				args["path"] = parts[1]
			}
			a.cliCall(ctx, a.renderViewHandler, args)

		case "autoscan":
			if len(parts) < 2 || (parts[1] != "on" && parts[1] != "off") {
				fmt.Println("Usage: autoscan on|off")
				continue
			}
			a.cliCall(ctx, a.autoScanHandler, map[string]any{"enabled": parts[1] == "on"})

		case "sessions":
			a.cliCall(ctx, a.listSessionsHandler, nil)

		case "end":
			a.cliCall(ctx, a.endSessionHandler, nil)

		case "status":
			a.cliCall(ctx, a.statusHandler, nil)

		default:
			fmt.Println(UnknownCmdMsg)
		}
	}
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// cliCall dispatches a CLI command through the same handler the MCP tool
// uses, so both surfaces behave identically.
func (a *App) cliCall(ctx context.Context, handler toolHandler, args map[string]any) {
	req := mcp.CallToolRequest{}
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	res, err := handler(ctx, req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for _, c := range res.Content {
		if text, ok := c.(mcp.TextContent); ok {
			fmt.Println(text.Text)
		}
	}
}

func (a *App) cliOverlays() {
	transforms := a.currentSession().Registry().Transforms()
	if len(transforms) == 0 {
		fmt.Println("No overlays.")
		return
	}
	for _, t := range transforms {
		fmt.Printf("%s: %s (%s, %d bytes)\n", t.ObjectName, t.Style, t.Fidelity, len(t.ImageData))
	}
}

// styleArgs lets apply/upgrade take an optional explicit object name and
// style; omitted values fall back to the selection and active style.
func styleArgs(parts []string, a *App) map[string]any {
	args := map[string]any{}
	if len(parts) > 0 {
		args["style"] = parts[len(parts)-1]
		if len(parts) > 1 {
			args["object"] = strings.Join(parts[:len(parts)-1], " ")
		}
	}
	return args
}

func styleList() string {
	ids := StyleIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return strings.Join(out, ", ")
}
