package schema

import (
	"fmt"
	"strings"
)

// FieldType enumerates the kinds of answers a field can hold.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldChoice  FieldType = "choice"
)

// Field is a single addressable concept extracted from a profile schema.
// Name is the dotted path of the concept inside the schema document.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	// Values holds the allowed answers for choice fields.
	Values []string `json:"values,omitempty"`
	// Answered is set when the schema node already carries a non-empty value.
	Answered bool `json:"answered,omitempty"`
}

// Section returns the top-level key of the field path.
func (f Field) Section() string {
	section, _, _ := strings.Cut(f.Name, ".")
	return section
}

// Subsection returns the field path without its top-level key.
func (f Field) Subsection() string {
	_, rest, _ := strings.Cut(f.Name, ".")
	return rest
}

// ValidationError reports a malformed schema node. It is fatal to question
// generation: a schema that cannot be extracted cannot start an interview.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema at %q: %s", e.Path, e.Reason)
}

// ParseFieldType converts a schema "type" value into a FieldType.
func ParseFieldType(s string) (FieldType, bool) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case FieldText:
		return FieldText, true
	case FieldNumber:
		return FieldNumber, true
	case FieldBoolean:
		return FieldBoolean, true
	case FieldChoice:
		return FieldChoice, true
	}
	return "", false
}
