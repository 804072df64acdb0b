package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jkaninda/mcp-secrets/internal/dialog"
	"github.com/jkaninda/mcp-secrets/internal/secrets"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("setup_credentials",
		mcp.WithDescription("Collect this application's credentials through the secure dialog and store them in the platform vault."),
	), s.handleSetupCredentials)

	s.mcp.AddTool(mcp.NewTool("check_credentials",
		mcp.WithDescription("Check which configured credentials are stored, collecting any that are missing."),
	), s.handleCheckCredentials)

	s.mcp.AddTool(mcp.NewTool("secure_api_request",
		mcp.WithDescription("Demonstrates secure-by-default secret access: asks for permission before using each secret."),
	), s.handleSecureAPIRequest)

	s.mcp.AddTool(mcp.NewTool("clear_credentials",
		mcp.WithDescription("Delete every stored credential for this application."),
	), s.handleClearCredentials)
}

func (s *Server) handleSetupCredentials(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outcome, err := s.manager.FetchSecrets(ctx, s.schema, s.elicitor, s.elicitor)
	if err != nil {
		return s.collectionFailure(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully stored %d credentials.", outcome.Stored)), nil
}

func (s *Server) handleCheckCredentials(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := make([]string, len(s.schema))
	for i, f := range s.schema {
		names[i] = f.Name
	}

	present, err := s.manager.EnsureSecrets(names)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if present {
		return mcp.NewToolResultText(fmt.Sprintf("All credentials present: %s.", strings.Join(names, ", "))), nil
	}

	s.elicitor.Notify(ctx, "Some credentials are missing.")
	outcome, err := s.manager.FetchSecrets(ctx, s.schema, s.elicitor, s.elicitor)
	if err != nil {
		return s.collectionFailure(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored %d missing credentials.", outcome.Stored)), nil
}

func (s *Server) handleSecureAPIRequest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Check existence without ever reading the value.
	exists, err := s.manager.SecretExists("api_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !exists {
		if _, err := s.manager.FetchSecrets(ctx, s.schema, s.elicitor, s.elicitor); err != nil {
			return s.collectionFailure(err), nil
		}
	}

	apiKey, err := s.manager.RetrieveWithPermission(ctx, "api_key", s.elicitor,
		"Authentication with external API")
	if err != nil {
		return s.permissionFailure("api_key", err), nil
	}
	endpoint, err := s.manager.RetrieveWithPermission(ctx, "endpoint", s.elicitor,
		"API endpoint configuration")
	if err != nil {
		return s.permissionFailure("endpoint", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Making API request to %s with key %s...", endpoint, mask(apiKey))), nil
}

func (s *Server) handleClearCredentials(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.manager.ClearSecrets(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("All credentials cleared."), nil
}

// collectionFailure translates a collection outcome into a tool result.
// A user cancellation is a plain message, not an error the host should
// alarm on; operational failures carry their diagnostic.
func (s *Server) collectionFailure(err error) *mcp.CallToolResult {
	if errors.Is(err, dialog.ErrCollectionCancelled) {
		return mcp.NewToolResultText("Secrets fetch cancelled by user.")
	}
	return mcp.NewToolResultError("Secrets fetch failed: " + err.Error())
}

func (s *Server) permissionFailure(name string, err error) *mcp.CallToolResult {
	if errors.Is(err, secrets.ErrPermissionDenied) {
		return mcp.NewToolResultError(fmt.Sprintf("Access to %q denied by user.", name))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Secret access failed: %v", err))
}

// mask shortens a secret for display, keeping only a recognizable prefix.
func mask(value string) string {
	if len(value) <= 8 {
		return "********"
	}
	return value[:8] + "..."
}
