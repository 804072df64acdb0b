package main

import "testing"

func TestVersionDefaultsArePlaceholders(t *testing.T) {
	// Without -ldflags every build metadata field reports a placeholder;
	// nothing ships a baked-in date or commit.
	if version != "dev" {
		t.Errorf("got version %q, want dev placeholder", version)
	}
	for name, value := range map[string]string{"commit": commit, "date": date} {
		if value != "unknown" {
			t.Errorf("got %s %q, want unknown placeholder", name, value)
		}
	}
}
