package interview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prism-labs/prism/internal/schema"
)

// State is the interview session state.
type State string

const (
	StateNotStarted     State = "not_started"
	StateAwaitingAnswer State = "awaiting_answer"
	StateCompleted      State = "completed"
	StateAborted        State = "aborted"
)

// Phase distinguishes the two question documents traversed within a tier:
// general profile questions first, then category questions.
type Phase string

const (
	PhaseGeneral  Phase = "general"
	PhaseCategory Phase = "category"
)

// Session is the explicit state of one interview run. It is owned by a
// single Driver; there is no ambient shared state between sessions.
type Session struct {
	ID        string
	ProfileID string
	State     State
	Tier      int
	Phase     Phase

	// asked records every question presented in this session, keyed by
	// field path. A question is never presented twice.
	asked map[string]bool
}

func (s *Session) markAsked(fieldPath string) {
	if s.asked == nil {
		s.asked = make(map[string]bool)
	}
	s.asked[fieldPath] = true
}

func (s *Session) wasAsked(fieldPath string) bool {
	return s.asked[fieldPath]
}

// Prompt is a single question ready to be presented by the UI.
type Prompt struct {
	Tier  int
	Phase Phase
	Field schema.Field
	// Text is the plain question text.
	Text string
	// Lead is the conversational framing shown to the user. It falls back
	// to Text when no transition could be generated.
	Lead string
}

// ErrInvalidAnswer reports an answer that does not match the field type.
// The UI decides whether to re-prompt or abort.
type ErrInvalidAnswer struct {
	Field  schema.Field
	Reason string
}

func (e *ErrInvalidAnswer) Error() string {
	return fmt.Sprintf("invalid answer for %s: %s", e.Field.Name, e.Reason)
}

// ParseAnswer converts the raw user input into a typed answer value.
func ParseAnswer(field schema.Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ErrInvalidAnswer{Field: field, Reason: "answer is empty"}
	}

	switch field.Type {
	case schema.FieldNumber:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ErrInvalidAnswer{Field: field, Reason: "expected a number"}
		}
		return value, nil
	case schema.FieldBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "y":
			return true, nil
		case "false", "no", "n":
			return false, nil
		}
		return nil, &ErrInvalidAnswer{Field: field, Reason: "expected yes or no"}
	case schema.FieldChoice:
		if len(field.Values) == 0 {
			return raw, nil
		}
		for _, allowed := range field.Values {
			if strings.EqualFold(raw, allowed) {
				return allowed, nil
			}
		}
		return nil, &ErrInvalidAnswer{
			Field:  field,
			Reason: fmt.Sprintf("expected one of: %s", strings.Join(field.Values, ", ")),
		}
	default:
		return raw, nil
	}
}
