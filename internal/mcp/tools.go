package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"powerbi-tom-skill/internal/common/errors"
	powerbitom "powerbi-tom-skill/internal/skills/powerbi-tom"
)

// registerTools registers one tool per enabled catalog function.
func (s *Server) registerTools() {
	tools := make([]mcpserver.ServerTool, 0, len(s.functions))
	for _, fn := range s.functions {
		tools = append(tools, s.functionTool(fn))
	}
	s.mcpServer.AddTools(tools...)
}

func (s *Server) functionTool(fn powerbitom.Function) mcpserver.ServerTool {
	opts := []mcplib.ToolOption{mcplib.WithDescription(fn.Description)}
	for _, p := range fn.Parameters {
		propOpts := []mcplib.PropertyOption{mcplib.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcplib.Required())
		}
		opts = append(opts, mcplib.WithString(p.Name, propOpts...))
	}

	return mcpserver.ServerTool{
		Tool:    mcplib.NewTool(fn.Name, opts...),
		Handler: s.handleFunction(fn),
	}
}

// handleFunction adapts a catalog function to an mcp-go tool handler. Missing
// arguments are left to the function so it can answer with its own message.
func (s *Server) handleFunction(fn powerbitom.Function) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
		if s.service == nil {
			return mcplib.NewToolResultError("skill service not configured"), nil
		}

		args := req.GetArguments()
		vars := make(powerbitom.ParameterSet, len(fn.Parameters))
		for _, p := range fn.Parameters {
			raw, ok := args[p.Name]
			if !ok || raw == nil {
				continue
			}
			v, ok := raw.(string)
			if !ok {
				return mcplib.NewToolResultError(fmt.Sprintf("%s must be a string", p.Name)), nil
			}
			vars[p.Name] = v
		}

		inv := powerbitom.NewInvocation(vars)
		out, err := fn.Invoke(ctx, s.service, inv)
		if err != nil {
			s.logger.Error("Tool call failed", map[string]interface{}{
				"tool":      fn.Name,
				"errorCode": string(errors.CodeOf(err)),
			})
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("%s failed", fn.Name), err), nil
		}
		if inv.Failed() {
			return mcplib.NewToolResultError(out), nil
		}
		return mcplib.NewToolResultText(out), nil
	}
}
