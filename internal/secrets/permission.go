package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jkaninda/mcp-secrets/internal/elicit"
	"github.com/jkaninda/mcp-secrets/internal/observability"
)

// Permission prompt choices. The response must match one of these
// exactly; anything else is treated as a denial.
const (
	choiceAllow   = "Allow"
	choiceSession = "Allow for Session"
	choiceDeny    = "Deny"
)

// Gate decides whether a stored secret may be released. A one-time
// "Allow" releases the value once and is re-confirmed on the next
// access; "Allow for Session" is cached for the lifetime of the gate;
// "Deny" fails the access and caches nothing.
//
// The session cache lives only in memory and dies with the gate. The
// only transition within a session is NoGrant -> GrantedForSession.
type Gate struct {
	store  *Store
	bypass bool

	mu      sync.Mutex
	granted map[string]struct{}

	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewGate creates a gate over the given store. When bypass is set, every
// existing secret is released without prompting; this is an operator
// escape hatch for non-interactive environments and is logged as such.
func NewGate(store *Store, bypass bool, metrics *observability.MetricsCollector, logger *slog.Logger) *Gate {
	return &Gate{
		store:   store,
		bypass:  bypass,
		granted: make(map[string]struct{}),
		metrics: metrics,
		logger:  logger,
	}
}

// Authorize releases the value of name if the user permits it. The
// elicitor drives the interactive prompt and may be nil only when the
// bypass flag is set or a session grant already exists; otherwise the
// call fails with ErrPermissionRequired.
func (g *Gate) Authorize(ctx context.Context, name string, elicitor elicit.Elicitor, reason string) (string, error) {
	value, found, err := g.store.Retrieve(name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	if g.bypass {
		g.metrics.RecordPermissionDecision("bypass")
		g.logger.Warn("secret released via permission bypass",
			slog.String("identity", g.store.Identity()),
			slog.String("secret", name),
		)
		return value, nil
	}

	if g.hasSessionGrant(name) {
		g.metrics.RecordPermissionDecision("cached_session")
		return value, nil
	}

	if elicitor == nil {
		return "", ErrPermissionRequired
	}

	message := fmt.Sprintf("%q requests access to secret %q", g.store.Identity(), name)
	if reason != "" {
		message += "\nReason: " + reason
	}

	result, err := elicitor.Elicit(ctx, message, []string{choiceAllow, choiceSession, choiceDeny})
	if err != nil {
		return "", fmt.Errorf("permission prompt failed: %w", err)
	}
	if !result.Accepted() {
		g.deny(name, "prompt "+string(result.Action))
		return "", ErrPermissionDenied
	}

	switch result.Choice {
	case choiceAllow:
		g.metrics.RecordPermissionDecision("granted")
		g.logger.Info("secret released for single use",
			slog.String("identity", g.store.Identity()),
			slog.String("secret", name),
		)
		return value, nil
	case choiceSession:
		g.recordSessionGrant(name)
		g.metrics.RecordPermissionDecision("granted_session")
		g.logger.Info("secret released for session",
			slog.String("identity", g.store.Identity()),
			slog.String("secret", name),
		)
		return value, nil
	default:
		// "Deny" and any unexpected choice land here.
		g.deny(name, "choice "+result.Choice)
		return "", ErrPermissionDenied
	}
}

// ResetSession drops every session grant. Called on re-initialization.
func (g *Gate) ResetSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = make(map[string]struct{})
}

func (g *Gate) hasSessionGrant(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.granted[name]
	return ok
}

func (g *Gate) recordSessionGrant(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[name] = struct{}{}
}

func (g *Gate) deny(name, detail string) {
	g.metrics.RecordPermissionDecision("denied")
	g.logger.Info("secret access denied",
		slog.String("identity", g.store.Identity()),
		slog.String("secret", name),
		slog.String("detail", detail),
	)
}
