package question

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/schema"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
	calls       int
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestPhraserUsesGeneratedText(t *testing.T) {
	stub := &stubGenerator{response: "What kind of music makes your day better?"}
	stage := NewPhraser(stub, zap.NewNop())

	batch := NewBatch([]schema.Field{{
		Name:        "generalprofile.corePreferences.musicGenres",
		Type:        schema.FieldText,
		Description: "Genres the user enjoys",
	}})

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidate := out.Items[0]
	if candidate.Text != "What kind of music makes your day better?" {
		t.Fatalf("unexpected text: %q", candidate.Text)
	}
	if candidate.Templated {
		t.Fatal("generated question must not be marked templated")
	}

	if !strings.Contains(stub.lastMessage, "generalprofile.corePreferences.musicGenres") {
		t.Fatalf("expected field name in prompt: %s", stub.lastMessage)
	}
	if !strings.Contains(stub.lastMessage, "Genres the user enjoys") {
		t.Fatalf("expected description in prompt: %s", stub.lastMessage)
	}
}

func TestPhraserFallsBackToTemplateOnError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("service unavailable")}
	stage := NewPhraser(stub, zap.NewNop())

	batch := NewBatch([]schema.Field{{
		Name:        "generalprofile.personality.humorStyle",
		Type:        schema.FieldChoice,
		Values:      []string{"dry", "slapstick"},
		Description: "Humor style",
	}})

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("phrasing failure must not abort the batch: %v", err)
	}

	candidate := out.Items[0]
	if !candidate.Templated {
		t.Fatal("expected templated fallback")
	}
	if !strings.Contains(candidate.Text, "humor style") {
		t.Fatalf("expected humanized field name in fallback: %q", candidate.Text)
	}
	if !strings.Contains(candidate.Text, "dry, slapstick") {
		t.Fatalf("expected choice values in fallback: %q", candidate.Text)
	}
}

func TestPhraserSkipsAlreadyPhrased(t *testing.T) {
	stub := &stubGenerator{response: "ignored"}
	stage := NewPhraser(stub, zap.NewNop())

	batch := &Batch{Items: []*Candidate{{
		Field:  schema.Field{Name: "a.b", Type: schema.FieldText},
		Text:   "existing question",
		Status: StatusPending,
	}}}

	out, _, err := stage.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Items[0].Text != "existing question" {
		t.Fatalf("text must not be overwritten: %q", out.Items[0].Text)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", stub.calls)
	}
}

func TestTemplateQuestionByType(t *testing.T) {
	cases := []struct {
		field    schema.Field
		contains string
	}{
		{schema.Field{Name: "profile.age", Type: schema.FieldNumber}, "What number"},
		{schema.Field{Name: "profile.hasPets", Type: schema.FieldBoolean}, "true for you"},
		{schema.Field{Name: "profile.notes", Type: schema.FieldText, Description: "Free notes"}, "Free notes"},
	}

	for _, tc := range cases {
		got := TemplateQuestion(tc.field)
		if !strings.Contains(got, tc.contains) {
			t.Fatalf("expected %q in template for %s, got %q", tc.contains, tc.field.Name, got)
		}
	}
}

func TestHumanizePath(t *testing.T) {
	if got := humanizePath("generalprofile.corePreferences.lifeStageNotes"); got != "life stage notes" {
		t.Fatalf("unexpected humanized path: %q", got)
	}

	if got := humanizePath("hobbies"); got != "hobbies" {
		t.Fatalf("unexpected humanized path: %q", got)
	}
}
