package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/plotbox/internal/catalog"
	"github.com/michaelbrown/plotbox/internal/policy"
	"github.com/michaelbrown/plotbox/internal/sandbox"
)

func main() {
	s := server.NewMCPServer("plotbox-data-viz", "0.1.0")

	s.AddTool(mcp.Tool{
		Name: "script_run",
		Description: "Run a Lua script in a restricted sandbox with numeric, data-frame, " +
			"and plotting libraries (numeric/num, frame/df, plot/plt). " +
			"Returns printed output, final variables, and a base64 PNG when a plot was drawn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Lua source code to execute",
				},
			},
			Required: []string{"code"},
		},
	}, handleScriptRun)

	s.AddTool(mcp.Tool{
		Name:        "functions_list",
		Description: "List the library functions available to sandboxed scripts, grouped by module.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, handleFunctionsList)

	s.AddTool(mcp.Tool{
		Name:        "sample_data",
		Description: "Return a sample script demonstrating the sandbox libraries.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, handleSampleData)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}

func handleScriptRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	code, _ := args["code"].(string)
	if code == "" {
		return errResult("error: 'code' is required"), nil
	}

	exec := sandbox.NewExecutor(policy.Default())
	res := exec.Run(ctx, sandbox.Request{Source: code})

	rec := sandbox.Encode(res)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(data)}},
		IsError: !res.Success,
	}, nil
}

func handleFunctionsList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, group := range []string{"builtin", "numeric", "numeric.random", "frame", "plot"} {
		b.WriteString(group + ":\n")
		b.WriteString("  " + strings.Join(catalog.Functions()[group], ", ") + "\n")
	}
	return textResult(b.String()), nil
}

func handleSampleData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sample := catalog.SampleData()
	return textResult(sample.Description + "\n\n" + sample.Code), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
