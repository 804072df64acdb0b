package secrets

import (
	"context"
	"log/slog"

	"github.com/jkaninda/mcp-secrets/internal/dialog"
	"github.com/jkaninda/mcp-secrets/internal/elicit"
	"github.com/jkaninda/mcp-secrets/internal/keyring"
	"github.com/jkaninda/mcp-secrets/internal/observability"
)

// ManagerOptions configures a Manager at initialization.
type ManagerOptions struct {
	Ring    keyring.Keyring // Secure-storage backend. Required.
	Runner  dialog.Runner   // Collector runner. Required for FetchSecrets.
	Bypass  bool            // Release secrets without prompting.
	Wipe    bool            // Wipe all stored secrets at initialization.
	Metrics *observability.MetricsCollector
	Logger  *slog.Logger
}

// Manager is the composition root binding one store and one permission
// gate to an application identity. It is constructed explicitly and
// handed to tool handlers; there is no process-wide instance. The zero
// value is unbound and every operation on it returns ErrNotInitialized.
//
// Authorize/fetch calls on one Manager are expected to be serialized by
// the surrounding protocol session; the store's index read-modify-write
// is not atomic against concurrent mutation of the same identity.
type Manager struct {
	identity    string
	store       *Store
	gate        *Gate
	coordinator *dialog.Coordinator
	logger      *slog.Logger
}

// NewManager creates a manager bound to identity.
func NewManager(identity string, opts ManagerOptions) (*Manager, error) {
	m := &Manager{}
	if err := m.Initialize(identity, opts); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialize binds (or re-binds) the manager to identity. Re-binding
// discards all session permission grants.
func (m *Manager) Initialize(identity string, opts ManagerOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store, err := NewStore(identity, opts.Ring, opts.Wipe, opts.Metrics, logger)
	if err != nil {
		return err
	}
	m.identity = identity
	m.store = store
	m.gate = NewGate(store, opts.Bypass, opts.Metrics, logger)
	m.coordinator = dialog.NewCoordinator(opts.Runner, store, opts.Metrics, logger)
	m.logger = logger
	return nil
}

// Identity returns the bound identity, empty when unbound.
func (m *Manager) Identity() string { return m.identity }

func (m *Manager) initialized() bool { return m.store != nil }

// StoreSecret writes value under name. Values are plain strings; callers
// serialize structured content before storing and parse it after
// retrieval — nothing is stringified implicitly here.
func (m *Manager) StoreSecret(name, value string) error {
	if !m.initialized() {
		return ErrNotInitialized
	}
	return m.store.Store(name, value)
}

// RetrieveSecret reads a secret without any permission check. Intended
// for trusted internal use; tool handlers should go through
// RetrieveWithPermission.
func (m *Manager) RetrieveSecret(name string) (string, bool, error) {
	if !m.initialized() {
		return "", false, ErrNotInitialized
	}
	return m.store.Retrieve(name)
}

// DeleteSecret removes a stored secret.
func (m *Manager) DeleteSecret(name string) error {
	if !m.initialized() {
		return ErrNotInitialized
	}
	return m.store.Delete(name)
}

// ListSecrets returns the names of all stored secrets.
func (m *Manager) ListSecrets() ([]string, error) {
	if !m.initialized() {
		return nil, ErrNotInitialized
	}
	return m.store.List()
}

// ClearSecrets removes every stored secret and the index.
func (m *Manager) ClearSecrets() error {
	if !m.initialized() {
		return ErrNotInitialized
	}
	err := m.store.Clear()
	if err == nil {
		m.gate.ResetSession()
	}
	return err
}

// SecretExists reports whether name is stored, without reading its value.
func (m *Manager) SecretExists(name string) (bool, error) {
	if !m.initialized() {
		return false, ErrNotInitialized
	}
	return m.store.Exists(name)
}

// EnsureSecrets reports whether every named secret is present.
func (m *Manager) EnsureSecrets(names []string) (bool, error) {
	if !m.initialized() {
		return false, ErrNotInitialized
	}
	stored, err := m.store.List()
	if err != nil {
		return false, err
	}
	present := make(map[string]struct{}, len(stored))
	for _, name := range stored {
		present[name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := present[name]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// RetrieveWithPermission releases a secret after an explicit user grant,
// a cached session grant, or the operator bypass.
func (m *Manager) RetrieveWithPermission(ctx context.Context, name string, elicitor elicit.Elicitor, reason string) (string, error) {
	if !m.initialized() {
		return "", ErrNotInitialized
	}
	return m.gate.Authorize(ctx, name, elicitor, reason)
}

// FetchSecrets runs the interactive collection flow for the schema and
// stores every non-blank collected value.
func (m *Manager) FetchSecrets(ctx context.Context, schema dialog.Schema, elicitor elicit.Elicitor, notifier elicit.Notifier) (*dialog.Outcome, error) {
	if !m.initialized() {
		return nil, ErrNotInitialized
	}
	return m.coordinator.Collect(ctx, m.identity, schema, elicitor, notifier)
}
