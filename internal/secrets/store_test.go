package secrets

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/jkaninda/mcp-secrets/internal/keyring"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *keyring.Memory) {
	t.Helper()
	ring := keyring.NewMemory()
	store, err := NewStore("test-app", ring, false, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, ring
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	value, found, err := store.Retrieve("api_key")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !found {
		t.Fatal("secret not found after store")
	}
	if value != "sk-123" {
		t.Errorf("got %q, want %q", value, "sk-123")
	}
}

func TestRetrieveAbsentIsNotAnError(t *testing.T) {
	store, _ := newTestStore(t)

	_, found, err := store.Retrieve("never_stored")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if found {
		t.Error("found a secret that was never stored")
	}
}

func TestListMatchesStoreDeleteSequence(t *testing.T) {
	store, _ := newTestStore(t)

	for _, op := range []struct {
		action string
		name   string
	}{
		{"store", "api_key"},
		{"store", "endpoint"},
		{"store", "timeout"},
		{"store", "api_key"}, // overwrite, index unchanged
		{"delete", "timeout"},
	} {
		var err error
		switch op.action {
		case "store":
			err = store.Store(op.name, "v")
		case "delete":
			err = store.Delete(op.name)
		}
		if err != nil {
			t.Fatalf("%s %s: %v", op.action, op.name, err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"api_key", "endpoint"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestRetrieveAfterDelete(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Delete("api_key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err := store.Retrieve("api_key")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if found {
		t.Error("secret still found after delete")
	}
}

func TestDeleteLastSecretRemovesIndexEntry(t *testing.T) {
	store, ring := newTestStore(t)

	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Delete("api_key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := ring.Get("com.mcp.test-app", indexKey); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("index entry still present after last delete: %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List with absent index: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("got %v, want empty", names)
	}
}

func TestClearThenStoreWorksFresh(t *testing.T) {
	store, ring := newTestStore(t)

	for _, name := range []string{"api_key", "endpoint"} {
		if err := store.Store(name, "v"); err != nil {
			t.Fatalf("Store %s: %v", name, err)
		}
	}

	// A secret deleted out of band must not break Clear.
	if err := ring.Delete("com.mcp.test-app", "endpoint"); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("got %v after clear, want empty", names)
	}

	if err := store.Store("api_key", "fresh"); err != nil {
		t.Fatalf("Store after clear: %v", err)
	}
	value, found, err := store.Retrieve("api_key")
	if err != nil || !found || value != "fresh" {
		t.Errorf("got (%q, %v, %v), want (\"fresh\", true, nil)", value, found, err)
	}
}

func TestExistsNeverReadsValue(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	ok, err := store.Exists("api_key")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("stored secret reported as absent")
	}

	ok, err = store.Exists("missing")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("missing secret reported as present")
	}
}

func TestCorruptedIndexTreatedAsEmpty(t *testing.T) {
	store, ring := newTestStore(t)

	if err := ring.Set("com.mcp.test-app", indexKey, "{not json["); err != nil {
		t.Fatalf("Set: %v", err)
	}
	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("got %v from corrupted index, want empty", names)
	}
}

func TestWipeOnInit(t *testing.T) {
	ring := keyring.NewMemory()
	store, err := NewStore("test-app", ring, false, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	wiped, err := NewStore("test-app", ring, true, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStore with wipe: %v", err)
	}
	names, err := wiped.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("got %v after wipe, want empty", names)
	}
}

func TestStorageErrorIdentifiesOperation(t *testing.T) {
	ring := &failingKeyring{err: errors.New("vault locked")}
	store, err := NewStore("test-app", ring, false, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	err = store.Store("api_key", "sk-123")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("got %T, want *StorageError", err)
	}
	if storageErr.Op != "store" || storageErr.Name != "api_key" {
		t.Errorf("got op=%q name=%q, want store/api_key", storageErr.Op, storageErr.Name)
	}
}

// failingKeyring fails every operation, simulating a locked vault.
type failingKeyring struct {
	err error
}

func (f *failingKeyring) Get(_, _ string) (string, error) { return "", f.err }
func (f *failingKeyring) Set(_, _, _ string) error        { return f.err }
func (f *failingKeyring) Delete(_, _ string) error        { return f.err }
