// Package keyring abstracts the OS credential vault behind a minimal
// keyed get/set/delete contract. The system backend delegates to the
// platform keychain (macOS Keychain, Windows Credential Manager, or the
// freedesktop Secret Service on Linux, which requires libsecret); the
// memory backend exists for tests and headless hosts with no vault.
package keyring

import (
	"errors"
	"sync"

	zkeyring "github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no value is stored under the given key.
var ErrNotFound = errors.New("keyring: key not found")

// Keyring is the secure-storage primitive. Implementations must be safe
// for concurrent use across services; callers serialize per-key mutation.
type Keyring interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// System is the platform keychain backend.
//
// Note: Windows caps stored values at 2560 characters.
type System struct{}

// NewSystem returns the platform keychain backend.
func NewSystem() *System { return &System{} }

func (s *System) Get(service, key string) (string, error) {
	value, err := zkeyring.Get(service, key)
	if errors.Is(err, zkeyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *System) Set(service, key, value string) error {
	return zkeyring.Set(service, key, value)
}

func (s *System) Delete(service, key string) error {
	err := zkeyring.Delete(service, key)
	if errors.Is(err, zkeyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Memory is an in-process keyring for tests and environments without a
// platform vault. Values are lost when the process exits.
type Memory struct {
	mu       sync.Mutex
	services map[string]map[string]string
}

// NewMemory creates an empty in-memory keyring.
func NewMemory() *Memory {
	return &Memory{services: make(map[string]map[string]string)}
}

func (m *Memory) Get(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.services[service][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.services[service] == nil {
		m.services[service] = make(map[string]string)
	}
	m.services[service][key] = value
	return nil
}

func (m *Memory) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[service][key]; !ok {
		return ErrNotFound
	}
	delete(m.services[service], key)
	return nil
}
