// Package dialog coordinates interactive collection of missing secret
// values. A collection races two independently-cancellable channels: an
// out-of-process collector dialog spawned on the user's machine, and an
// in-protocol confirmation prompt. Both display the same one-time
// verification code so the human can tell they belong to one request.
package dialog

import (
	"fmt"
	"strings"
)

// FieldSpec describes one secret the caller wants collected. Name is the
// secret name the value is stored under; the remaining fields are
// display metadata passed through to the collector dialog untouched.
type FieldSpec struct {
	Name        string `json:"name" yaml:"name"`
	Label       string `json:"label" yaml:"label"`
	FieldType   string `json:"field_type,omitempty" yaml:"field_type,omitempty"` // "text", "password", "url"
	Required    bool   `json:"required" yaml:"required"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string `json:"help_text,omitempty" yaml:"help_text,omitempty"`
}

// Validate checks the fields every spec must carry.
func (f *FieldSpec) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field spec missing name")
	}
	if strings.HasPrefix(f.Name, "__") {
		return fmt.Errorf("field name %q uses a reserved prefix", f.Name)
	}
	if f.Label == "" {
		return fmt.Errorf("field %q missing label", f.Name)
	}
	return nil
}

// Schema is an ordered list of field specs. Order is preserved through
// the collector template and determines storage order for the collected
// values.
type Schema []FieldSpec

// Validate checks every field and rejects duplicate names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s))
	for i := range s {
		if err := s[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[s[i].Name]; dup {
			return fmt.Errorf("duplicate field name %q", s[i].Name)
		}
		seen[s[i].Name] = struct{}{}
	}
	return nil
}

// Template is the single JSON payload handed to the collector process on
// stdin. The verification code travels embedded in the description, not
// as a separate argument.
type Template struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldSpec `json:"fields"`
}

// BuildTemplate binds a schema to an identity and verification code.
// Existing stored values are never pre-filled into the fields: a
// collection dialog must not display a previously-stored secret.
func BuildTemplate(identity, code string, schema Schema) *Template {
	fields := make([]FieldSpec, len(schema))
	copy(fields, schema)
	return &Template{
		Title: fmt.Sprintf("MCP Secrets for %s", identity),
		Description: fmt.Sprintf(
			"Verification Code: %s\n\nConfirm this code matches what's displayed in your MCP host before proceeding.",
			code,
		),
		Fields: fields,
	}
}
