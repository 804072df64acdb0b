package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jkaninda/mcp-secrets/internal/elicit"
)

// scriptedElicitor returns canned responses and records each prompt.
type scriptedElicitor struct {
	responses []*elicit.Result
	calls     int
	messages  []string
}

func (s *scriptedElicitor) Elicit(_ context.Context, message string, _ []string) (*elicit.Result, error) {
	s.messages = append(s.messages, message)
	if s.calls >= len(s.responses) {
		return &elicit.Result{Action: elicit.ActionCancel}, nil
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

func accept(choice string) *elicit.Result {
	return &elicit.Result{Action: elicit.ActionAccept, Choice: choice}
}

func newTestGate(t *testing.T, bypass bool) *Gate {
	t.Helper()
	store, _ := newTestStore(t)
	if err := store.Store("api_key", "sk-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	return NewGate(store, bypass, nil, testLogger())
}

func TestAuthorizeAllowReleasesOnceWithoutCaching(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Allow"), accept("Allow")}}

	value, err := gate.Authorize(context.Background(), "api_key", el, "test")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if value != "sk-123" {
		t.Errorf("got %q, want %q", value, "sk-123")
	}

	// A one-time allow is not cached: the second access prompts again.
	if _, err := gate.Authorize(context.Background(), "api_key", el, "test"); err != nil {
		t.Fatalf("second Authorize: %v", err)
	}
	if el.calls != 2 {
		t.Errorf("got %d prompts, want 2", el.calls)
	}
}

func TestAuthorizeAllowForSessionSkipsLaterPrompts(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Allow for Session")}}

	if _, err := gate.Authorize(context.Background(), "api_key", el, "test"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	for i := 0; i < 3; i++ {
		value, err := gate.Authorize(context.Background(), "api_key", el, "test")
		if err != nil {
			t.Fatalf("Authorize after session grant: %v", err)
		}
		if value != "sk-123" {
			t.Errorf("got %q, want %q", value, "sk-123")
		}
	}
	if el.calls != 1 {
		t.Errorf("got %d prompts, want 1", el.calls)
	}
}

func TestAuthorizeDenyFailsAndCachesNothing(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Deny"), accept("Allow")}}

	_, err := gate.Authorize(context.Background(), "api_key", el, "test")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("got %v, want ErrPermissionDenied", err)
	}

	// Denial leaves no state: the next access prompts and can succeed.
	if _, err := gate.Authorize(context.Background(), "api_key", el, "test"); err != nil {
		t.Fatalf("Authorize after deny: %v", err)
	}
	if el.calls != 2 {
		t.Errorf("got %d prompts, want 2", el.calls)
	}
}

func TestAuthorizeDeclinedPromptIsDenied(t *testing.T) {
	for _, action := range []elicit.Action{elicit.ActionDecline, elicit.ActionCancel} {
		gate := newTestGate(t, false)
		el := &scriptedElicitor{responses: []*elicit.Result{{Action: action}}}

		_, err := gate.Authorize(context.Background(), "api_key", el, "test")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("action %s: got %v, want ErrPermissionDenied", action, err)
		}
	}
}

func TestAuthorizeUnknownChoiceIsDenied(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Maybe")}}

	_, err := gate.Authorize(context.Background(), "api_key", el, "test")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestAuthorizeBypassNeverPrompts(t *testing.T) {
	gate := newTestGate(t, true)
	el := &scriptedElicitor{}

	value, err := gate.Authorize(context.Background(), "api_key", el, "test")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if value != "sk-123" {
		t.Errorf("got %q, want %q", value, "sk-123")
	}
	if el.calls != 0 {
		t.Errorf("bypass issued %d prompts, want 0", el.calls)
	}
}

func TestAuthorizeWithoutElicitorRequiresPermission(t *testing.T) {
	gate := newTestGate(t, false)

	_, err := gate.Authorize(context.Background(), "api_key", nil, "test")
	if !errors.Is(err, ErrPermissionRequired) {
		t.Errorf("got %v, want ErrPermissionRequired", err)
	}
}

func TestAuthorizeMissingSecret(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Allow")}}

	_, err := gate.Authorize(context.Background(), "missing", el, "test")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("got %v, want ErrSecretNotFound", err)
	}
	if el.calls != 0 {
		t.Errorf("missing secret issued %d prompts, want 0", el.calls)
	}
}

func TestAuthorizePromptCarriesIdentityAndReason(t *testing.T) {
	gate := newTestGate(t, false)
	el := &scriptedElicitor{responses: []*elicit.Result{accept("Allow")}}

	if _, err := gate.Authorize(context.Background(), "api_key", el, "Authentication with external API"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	msg := el.messages[0]
	for _, want := range []string{"test-app", "api_key", "Authentication with external API"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt %q missing %q", msg, want)
		}
	}
}
