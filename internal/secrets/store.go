// Package secrets implements per-application credential storage gated by
// explicit user permission. Secrets are named string values held in the
// platform credential vault under a service namespace derived from the
// owning application identity; an index entry stored alongside them
// supports enumeration, which the vault itself does not offer.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jkaninda/mcp-secrets/internal/keyring"
	"github.com/jkaninda/mcp-secrets/internal/observability"
)

// indexKey is the reserved vault key holding the JSON array of secret
// names for one identity. It is never a valid secret name.
const indexKey = "__secret_index__"

// serviceName returns the vault service under which all secrets of the
// given identity live.
func serviceName(identity string) string {
	return "com.mcp." + identity
}

// Store provides indexed CRUD over the credential vault for exactly one
// identity. The index read-modify-write in Store/Delete is not atomic
// against concurrent mutation of the same identity; callers serialize.
type Store struct {
	identity string
	service  string
	ring     keyring.Keyring
	metrics  *observability.MetricsCollector
	logger   *slog.Logger
}

// NewStore binds a store to one identity. When wipe is set, every secret
// recorded in the index is deleted before the store is handed out.
func NewStore(identity string, ring keyring.Keyring, wipe bool, metrics *observability.MetricsCollector, logger *slog.Logger) (*Store, error) {
	s := &Store{
		identity: identity,
		service:  serviceName(identity),
		ring:     ring,
		metrics:  metrics,
		logger:   logger,
	}
	if wipe {
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("wiping secrets on init: %w", err)
		}
		logger.Info("wiped all secrets on init", slog.String("identity", identity))
	}
	return s, nil
}

// Identity returns the application identity this store is bound to.
func (s *Store) Identity() string { return s.identity }

// Store writes value under name, then adds name to the index. Storing an
// existing name overwrites the value and leaves the index unchanged. The
// two vault writes are not transactional: an interruption between them
// can leave the index undercounting, which is accepted best-effort.
func (s *Store) Store(name, value string) (err error) {
	defer func() { s.metrics.RecordStorageOp("store", err) }()
	if err := s.ring.Set(s.service, name, value); err != nil {
		return &StorageError{Op: "store", Name: name, Err: err}
	}
	index, err := s.readIndex()
	if err != nil {
		return &StorageError{Op: "store", Name: name, Err: err}
	}
	if _, ok := index[name]; ok {
		return nil
	}
	index[name] = struct{}{}
	if err := s.writeIndex(index); err != nil {
		return &StorageError{Op: "store", Name: name, Err: err}
	}
	return nil
}

// Retrieve reads the value stored under name. A name that was never
// stored, or was deleted, reports found=false rather than an error. The
// index is not consulted.
func (s *Store) Retrieve(name string) (value string, found bool, err error) {
	defer func() { s.metrics.RecordStorageOp("retrieve", err) }()
	value, err = s.ring.Get(s.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Op: "retrieve", Name: name, Err: err}
	}
	return value, true, nil
}

// Delete removes the stored value and drops name from the index. When the
// index becomes empty its vault entry is removed entirely rather than
// left as an empty set.
func (s *Store) Delete(name string) (err error) {
	defer func() { s.metrics.RecordStorageOp("delete", err) }()
	if err := s.ring.Delete(s.service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &StorageError{Op: "delete", Name: name, Err: err}
	}
	index, err := s.readIndex()
	if err != nil {
		return &StorageError{Op: "delete", Name: name, Err: err}
	}
	if _, ok := index[name]; !ok {
		return nil
	}
	delete(index, name)
	if err := s.writeIndex(index); err != nil {
		return &StorageError{Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List returns the names of all stored secrets, sorted. An identity with
// no secrets has no index entry at all; that reads back as an empty set.
func (s *Store) List() (_ []string, err error) {
	defer func() { s.metrics.RecordStorageOp("list", err) }()
	index, err := s.readIndex()
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name is present in the index. The value itself
// is never read.
func (s *Store) Exists(name string) (bool, error) {
	index, err := s.readIndex()
	if err != nil {
		return false, &StorageError{Op: "list", Err: err}
	}
	_, ok := index[name]
	return ok, nil
}

// Clear deletes every secret recorded in the index, then the index entry
// itself. A secret already gone from the vault (deleted out of band) is
// skipped, not an error.
func (s *Store) Clear() (err error) {
	defer func() { s.metrics.RecordStorageOp("clear", err) }()
	index, err := s.readIndex()
	if err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	for name := range index {
		if err := s.ring.Delete(s.service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return &StorageError{Op: "clear", Name: name, Err: err}
		}
	}
	if err := s.ring.Delete(s.service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &StorageError{Op: "clear", Err: err}
	}
	return nil
}

// readIndex loads the index as a set. A missing index entry is an empty
// set; a corrupted one is treated the same, so a damaged index never
// wedges the store.
func (s *Store) readIndex() (map[string]struct{}, error) {
	raw, err := s.ring.Get(s.service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		s.logger.Warn("secret index corrupted, treating as empty",
			slog.String("identity", s.identity),
			slog.String("error", err.Error()),
		)
		return map[string]struct{}{}, nil
	}
	index := make(map[string]struct{}, len(names))
	for _, name := range names {
		index[name] = struct{}{}
	}
	return index, nil
}

// writeIndex persists the set, removing the vault entry when empty.
func (s *Store) writeIndex(index map[string]struct{}) error {
	if len(index) == 0 {
		if err := s.ring.Delete(s.service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
		return nil
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return s.ring.Set(s.service, indexKey, string(raw))
}
