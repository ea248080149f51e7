package capsule

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestForExport_InjectsSchema(t *testing.T) {
	c := &Capsule{ID: "x", Notes: []string{"n"}}
	out := ForExport(c)
	if out.Schema != SchemaVersion {
		t.Errorf("Schema = %q, want %q", out.Schema, SchemaVersion)
	}
	if c.Schema != "" {
		t.Error("ForExport mutated its input")
	}

	data, err := MarshalExport(c)
	if err != nil {
		t.Fatalf("MarshalExport failed: %v", err)
	}
	if !strings.Contains(string(data), `"schema": "pocket-classroom/v1"`) {
		t.Errorf("export missing schema: %s", data)
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename(&Capsule{ID: "01ABC", Meta: Meta{Title: "Go Basics"}}); got != "go-basics.json" {
		t.Errorf("ExportFilename = %q", got)
	}
	if got := ExportFilename(&Capsule{ID: "01ABC", Meta: Meta{Title: " "}}); got != "01abc.json" {
		t.Errorf("ExportFilename blank title = %q", got)
	}
}

func importReason(t *testing.T, err error) string {
	t.Helper()
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *ImportError", err)
	}
	return ie.Reason
}

func TestParseImport_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing schema", `{"meta":{"title":"T"},"notes":["n"]}`, MsgInvalidSchema},
		{"wrong schema", `{"schema":"pocket-classroom/v2","meta":{"title":"T"},"notes":["n"]}`, MsgInvalidSchema},
		{"missing meta", `{"schema":"pocket-classroom/v1","notes":["n"]}`, MsgMissingTitle},
		{"blank title", `{"schema":"pocket-classroom/v1","meta":{"title":"  "},"notes":["n"]}`, MsgMissingTitle},
		{"empty", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"notes":[],"flashcards":[]}`, MsgCapsuleEmpty},
		{"bad correct", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"quiz":[{"question":"q","choices":["a","b","c","d"],"correct":4}]}`, "quiz[0].correct: correct must be between 0 and 3, got 4"},
		{"two choices", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"quiz":[{"question":"q","choices":["a","b"],"correct":0}]}`, "quiz[0].choices: a question needs exactly 4 choices, got 2"},
		{"six choices", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"quiz":[{"question":"q","choices":["a","b","c","d","e","f"],"correct":5}]}`, "quiz[0].choices: a question needs exactly 4 choices, got 6"},
		{"choice count checked per item", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"quiz":[{"question":"q","choices":["a","b","c","d"],"correct":0},{"question":"r","choices":["a","b","c"],"correct":0}]}`, "quiz[1].choices: a question needs exactly 4 choices, got 3"},
		{"blank correct choice", `{"schema":"pocket-classroom/v1","meta":{"title":"T"},"quiz":[{"question":"q","choices":["a","b","",""],"correct":3}]}`, "quiz[0].choices: the correct choice is blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.doc), time.Now())
			if got := importReason(t, err); got != tt.want {
				t.Errorf("reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseImport_MalformedJSON(t *testing.T) {
	_, err := ParseImport([]byte(`{"schema":`), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		t.Errorf("syntax error reported as ImportError: %v", err)
	}
}

func TestParseImport_AssignsIDAndDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := `{"id":"old","schema":"pocket-classroom/v1","meta":{"title":"T","level":"advanced"},"flashcards":[{"front":"f","back":"b"}]}`

	c, err := ParseImport([]byte(doc), now)
	if err != nil {
		t.Fatalf("ParseImport failed: %v", err)
	}
	if c.ID == "" || c.ID == "old" {
		t.Errorf("ID = %q, want a fresh id", c.ID)
	}
	if !c.Meta.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", c.Meta.UpdatedAt, now)
	}
	if c.Meta.Level != LevelAdvanced {
		t.Errorf("Level = %q, want Advanced", c.Meta.Level)
	}
	if c.Notes == nil || c.Quiz == nil {
		t.Error("missing collections should decode as empty")
	}
}

func TestParseImport_KeepsUpdatedAt(t *testing.T) {
	doc := `{"schema":"pocket-classroom/v1","meta":{"title":"T","updatedAt":"2024-02-03T10:00:00.000Z"},"notes":["n"]}`
	c, err := ParseImport([]byte(doc), time.Now())
	if err != nil {
		t.Fatalf("ParseImport failed: %v", err)
	}
	want := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	if !c.Meta.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", c.Meta.UpdatedAt, want)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := &Capsule{
		ID:         "orig",
		Meta:       Meta{Title: "Go", Subject: "CS", Level: LevelIntermediate, Description: "d", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Notes:      []string{"one", "two"},
		Flashcards: []Flashcard{{Front: "f", Back: "b"}},
		Quiz:       []QuizItem{{Question: "q", Choices: [4]string{"a", "b", "c", "d"}, Correct: 2, Explanation: "e"}},
	}

	data, err := MarshalExport(src)
	if err != nil {
		t.Fatalf("MarshalExport failed: %v", err)
	}
	got, err := ParseImport(data, time.Now())
	if err != nil {
		t.Fatalf("ParseImport failed: %v", err)
	}

	got.ID = src.ID
	got.Schema = ""
	want, _ := json.Marshal(src)
	have, _ := json.Marshal(got)
	if string(want) != string(have) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", have, want)
	}
}
