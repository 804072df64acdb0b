package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jkaninda/mcp-secrets/internal/elicit"
)

// sessionElicitor drives elicitation requests over the client session
// carried in the tool handler's context. It satisfies both
// elicit.Elicitor and elicit.Notifier.
type sessionElicitor struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

func newSessionElicitor(srv *server.MCPServer, logger *slog.Logger) *sessionElicitor {
	return &sessionElicitor{srv: srv, logger: logger}
}

// Elicit sends an elicitation request to the client. With options it
// requests a single "choice" string constrained to the given values;
// without options it is a bare accept/decline/cancel gate.
func (e *sessionElicitor) Elicit(ctx context.Context, message string, options []string) (*elicit.Result, error) {
	req := mcp.ElicitationRequest{}
	req.Params.Message = message
	req.Params.RequestedSchema = choiceSchema(options)

	res, err := e.srv.RequestElicitation(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("elicitation request: %w", err)
	}

	result := &elicit.Result{Action: elicit.Action(res.Action)}
	if len(options) > 0 {
		result.Choice = decodeChoice(res.Content)
	}
	return result, nil
}

// decodeChoice extracts the "choice" property from elicitation response
// content. The content is untyped on the wire; anything that is not a
// flat object with a string choice yields "".
func decodeChoice(content any) string {
	obj, ok := content.(map[string]any)
	if !ok {
		return ""
	}
	choice, _ := obj["choice"].(string)
	return choice
}

// Notify pushes an informational log message to the client. Delivery
// failures are logged and swallowed; notifications are advisory.
func (e *sessionElicitor) Notify(ctx context.Context, message string) {
	err := e.srv.SendNotificationToClient(ctx, "notifications/message", map[string]any{
		"level": "info",
		"data":  message,
	})
	if err != nil {
		e.logger.Debug("client notification failed", slog.String("error", err.Error()))
	}
}

// choiceSchema builds the restricted response schema elicitation allows:
// flat objects with primitive-typed properties.
func choiceSchema(options []string) map[string]any {
	if len(options) == 0 {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	enum := make([]any, len(options))
	for i, opt := range options {
		enum[i] = opt
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"choice": map[string]any{
				"type":        "string",
				"enum":        enum,
				"description": "Your decision",
			},
		},
		"required": []any{"choice"},
	}
}
