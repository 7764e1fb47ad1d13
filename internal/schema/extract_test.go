package schema

import (
	"errors"
	"testing"
)

func TestExtractReturnsFieldsInDeclarationOrder(t *testing.T) {
	doc := []byte(`{
		"age":  {"type": "number", "description": "Age of the user"},
		"name": {"type": "text", "description": "Preferred name"}
	}`)

	fields, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Name != "age" || fields[0].Type != FieldNumber {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}

	if fields[1].Name != "name" || fields[1].Type != FieldText {
		t.Fatalf("unexpected second field: %+v", fields[1])
	}
}

func TestExtractWalksNestedSections(t *testing.T) {
	doc := []byte(`{
		"generalprofile": {
			"corePreferences": {
				"musicGenres": {"description": "Genres the user enjoys"},
				"lifeStageNotes": {"value": "working"}
			},
			"personality": {
				"humorStyle": {"values": ["dry", "slapstick"], "description": "Humor style"}
			}
		}
	}`)

	fields, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"generalprofile.corePreferences.musicGenres",
		"generalprofile.corePreferences.lifeStageNotes",
		"generalprofile.personality.humorStyle",
	}

	if len(fields) != len(expected) {
		t.Fatalf("expected %d fields, got %d: %+v", len(expected), len(fields), fields)
	}

	for i, name := range expected {
		if fields[i].Name != name {
			t.Fatalf("expected field %d to be %q, got %q", i, name, fields[i].Name)
		}
	}

	if !fields[1].Answered {
		t.Fatalf("expected lifeStageNotes to be marked answered")
	}

	if fields[2].Type != FieldChoice {
		t.Fatalf("expected humorStyle to be a choice field, got %s", fields[2].Type)
	}

	if len(fields[2].Values) != 2 {
		t.Fatalf("expected 2 allowed values, got %v", fields[2].Values)
	}
}

func TestExtractSection(t *testing.T) {
	doc := []byte(`{
		"generalprofile": {
			"hobbies": {"description": "Hobbies"}
		},
		"simulationPreferences": {
			"tone": {"description": "Preferred tone"}
		}
	}`)

	fields, err := ExtractSection(doc, "simulationPreferences")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fields) != 1 || fields[0].Name != "simulationPreferences.tone" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestExtractSectionMissing(t *testing.T) {
	_, err := ExtractSection([]byte(`{"a": {}}`), "missing")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExtractRejectsUnknownType(t *testing.T) {
	doc := []byte(`{"age": {"type": "integer", "description": "Age"}}`)

	_, err := Extract(doc)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "age" {
		t.Fatalf("expected error path age, got %q", verr.Path)
	}
}

func TestExtractRejectsMalformedDocument(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"truncated", `{"a": {"description":`},
		{"array root", `[1, 2]`},
		{"scalar root", `42`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := Extract([]byte(tc.doc)); !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestFieldSectionSplit(t *testing.T) {
	f := Field{Name: "recommendationProfiles.moviesAndTV.favoriteGenres"}

	if f.Section() != "recommendationProfiles" {
		t.Fatalf("unexpected section: %q", f.Section())
	}

	if f.Subsection() != "moviesAndTV.favoriteGenres" {
		t.Fatalf("unexpected subsection: %q", f.Subsection())
	}
}

func TestExtractEmptyValueNotAnswered(t *testing.T) {
	doc := []byte(`{"notes": {"description": "Notes", "value": "  "}}`)

	fields, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fields[0].Answered {
		t.Fatalf("blank value must not count as answered")
	}
}
