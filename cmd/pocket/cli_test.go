package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/db"
	"github.com/hpungsan/pocket/internal/events"
	"github.com/hpungsan/pocket/internal/logging"
	"github.com/hpungsan/pocket/internal/ops"
)

// setupTestRuntime opens a store in a temporary directory.
func setupTestRuntime(t *testing.T) *runtime {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	store := db.NewStore(database)
	log := logging.Nop()
	bus := events.NewBus(log)
	t.Cleanup(func() {
		bus.Close()
		store.Close()
	})

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return &runtime{store: events.Observe(store, bus, log), bus: bus, cfg: cfg, log: log}
}

// seedCapsule saves a capsule with two flashcards and two questions
// (answers A and B).
func seedCapsule(t *testing.T, rt *runtime, title string) string {
	t.Helper()
	out, err := ops.Save(context.Background(), rt.store, ops.SaveInput{Capsule: &capsule.Capsule{
		Meta:  capsule.Meta{Title: title, Subject: "Biology", Level: capsule.LevelBeginner},
		Notes: []string{"Cells are the unit of life."},
		Flashcards: []capsule.Flashcard{
			{Front: "Mitochondria", Back: "Powerhouse"},
			{Front: "Ribosome", Back: "Protein synthesis"},
		},
		Quiz: []capsule.QuizItem{
			{Question: "Largest organelle?", Choices: [4]string{"Nucleus", "Ribosome", "Vacuole", "Lysosome"}, Correct: 0, Explanation: "It holds the DNA."},
			{Question: "Site of photosynthesis?", Choices: [4]string{"Nucleus", "Chloroplast", "Golgi", "Membrane"}, Correct: 1},
		},
	}})
	if err != nil {
		t.Fatalf("failed to seed capsule: %v", err)
	}
	return out.ID
}

// runCLI runs args with stdin fed from input (nil keeps the real stdin)
// and returns what was written to stdout.
func runCLI(t *testing.T, rt *runtime, input *string, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(rt)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	if input != nil {
		oldStdin := os.Stdin
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			t.Fatalf("pipe: %v", err)
		}
		os.Stdin = stdinR
		go func() {
			_, _ = stdinW.WriteString(*input)
			stdinW.Close()
		}()
		defer func() {
			os.Stdin = oldStdin
			stdinR.Close()
		}()
	}

	runErr := app.Run(append([]string{"pocket"}, args...))

	w.Close()
	out := <-done
	os.Stdout = oldStdout
	return string(out), runErr
}

func strPtr(s string) *string { return &s }

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return v
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected [%s] error, got nil", code)
	}
	if !strings.HasPrefix(err.Error(), "["+code+"]") {
		t.Errorf("expected [%s] error, got %q", code, err.Error())
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"A", 0, true},
		{"b\n", 1, true},
		{"  C ", 2, true},
		{"d", 3, true},
		{"E", 0, false},
		{"", 0, false},
		{"AB", 0, false},
		{"1", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseChoice(tt.input)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("parseChoice(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestProgressBar(t *testing.T) {
	color.NoColor = true

	bar := progressBar(capsule.Segments{Quiz: 50, Flash: 25, Rest: 25})
	if got := strings.Count(bar, "█"); got != 15 {
		t.Errorf("expected 15 filled cells, got %d in %q", got, bar)
	}
	if got := strings.Count(bar, "░"); got != 5 {
		t.Errorf("expected 5 empty cells, got %d in %q", got, bar)
	}

	empty := progressBar(capsule.Segments{Rest: 100})
	if got := strings.Count(empty, "░"); got != barWidth {
		t.Errorf("expected %d empty cells, got %d", barWidth, got)
	}
}

func TestCLINew(t *testing.T) {
	rt := setupTestRuntime(t)

	out, err := runCLI(t, rt, nil, "new", "--title=Cell Biology", "--subject=Biology", "--level=advanced")
	if err != nil {
		t.Fatalf("new command failed: %v", err)
	}

	output := decodeOutput[ops.CreateOutput](t, out)
	if output.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if output.Capsule.Meta.Title != "Cell Biology" {
		t.Errorf("expected title Cell Biology, got %q", output.Capsule.Meta.Title)
	}
	if output.Capsule.Meta.Level != capsule.LevelAdvanced {
		t.Errorf("expected level Advanced, got %q", output.Capsule.Meta.Level)
	}
}

func TestCLISave(t *testing.T) {
	rt := setupTestRuntime(t)

	t.Run("new capsule from stdin", func(t *testing.T) {
		input := `{"meta":{"title":"Stdin capsule","level":"Beginner"},"notes":["one","  "],"flashcards":[],"quiz":[]}`
		out, err := runCLI(t, rt, &input, "save")
		if err != nil {
			t.Fatalf("save command failed: %v", err)
		}

		output := decodeOutput[ops.SaveOutput](t, out)
		if !output.Created {
			t.Error("expected created=true")
		}
		if output.Notes != 1 || output.Dropped != 1 {
			t.Errorf("expected 1 note and 1 dropped, got %d and %d", output.Notes, output.Dropped)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := runCLI(t, rt, strPtr(`{"meta":`), "save")
		expectCode(t, err, "MALFORMED_INPUT")
	})

	t.Run("empty capsule", func(t *testing.T) {
		_, err := runCLI(t, rt, strPtr(`{"meta":{"title":"Nothing"}}`), "save")
		expectCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("empty stdin", func(t *testing.T) {
		_, err := runCLI(t, rt, strPtr("  \n"), "save")
		expectCode(t, err, "INVALID_REQUEST")
	})
}

func TestCLIFetch(t *testing.T) {
	rt := setupTestRuntime(t)
	id := seedCapsule(t, rt, "Fetch me")

	out, err := runCLI(t, rt, nil, "fetch", id)
	if err != nil {
		t.Fatalf("fetch command failed: %v", err)
	}
	output := decodeOutput[ops.FetchOutput](t, out)
	if output.ID != id {
		t.Errorf("expected ID=%s, got %s", id, output.ID)
	}
	if len(output.Quiz) != 2 {
		t.Errorf("expected 2 quiz items, got %d", len(output.Quiz))
	}

	_, err = runCLI(t, rt, nil, "fetch", "missing")
	expectCode(t, err, "NOT_FOUND")
}

func TestCLIList(t *testing.T) {
	rt := setupTestRuntime(t)
	for _, title := range []string{"One", "Two", "Three"} {
		seedCapsule(t, rt, title)
	}

	out, err := runCLI(t, rt, nil, "list", "--limit=2")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	output := decodeOutput[ops.ListOutput](t, out)
	if len(output.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(output.Items))
	}
	if output.Pagination.Total != 3 {
		t.Errorf("expected total=3, got %d", output.Pagination.Total)
	}
	if !output.Pagination.HasMore {
		t.Error("expected has_more=true")
	}
}

func TestCLIDelete(t *testing.T) {
	rt := setupTestRuntime(t)
	id := seedCapsule(t, rt, "Delete me")

	out, err := runCLI(t, rt, nil, "delete", id)
	if err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	output := decodeOutput[ops.DeleteOutput](t, out)
	if !output.Deleted {
		t.Error("expected deleted=true")
	}

	_, err = runCLI(t, rt, nil, "delete", id)
	expectCode(t, err, "NOT_FOUND")
}

func TestCLIExportImport(t *testing.T) {
	rt := setupTestRuntime(t)
	id := seedCapsule(t, rt, "Round trip")
	path := filepath.Join(t.TempDir(), "round-trip.json")

	out, err := runCLI(t, rt, nil, "export", id, "--path="+path)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	exported := decodeOutput[ops.ExportOutput](t, out)
	if exported.Path != path {
		t.Errorf("expected path %s, got %s", path, exported.Path)
	}

	out, err = runCLI(t, rt, nil, "import", "--path="+path)
	if err != nil {
		t.Fatalf("import command failed: %v", err)
	}
	imported := decodeOutput[ops.ImportOutput](t, out)
	if imported.ID == "" || imported.ID == id {
		t.Errorf("expected a fresh id, got %q", imported.ID)
	}
	if imported.Title != "Round trip" {
		t.Errorf("expected title Round trip, got %q", imported.Title)
	}

	_, err = runCLI(t, rt, nil, "import", "--path="+filepath.Join(t.TempDir(), "absent.json"))
	expectCode(t, err, "FILE_NOT_FOUND")
}

func TestCLIKnownUnknown(t *testing.T) {
	rt := setupTestRuntime(t)
	id := seedCapsule(t, rt, "Cards")

	out, err := runCLI(t, rt, nil, "known", id, "1")
	if err != nil {
		t.Fatalf("known command failed: %v", err)
	}
	marked := decodeOutput[ops.MarkFlashcardOutput](t, out)
	if !marked.Changed || marked.KnownPercent != 50 {
		t.Errorf("expected changed at 50%%, got changed=%v %d%%", marked.Changed, marked.KnownPercent)
	}

	out, err = runCLI(t, rt, nil, "progress", id)
	if err != nil {
		t.Fatalf("progress command failed: %v", err)
	}
	progress := decodeOutput[ops.ProgressOutput](t, out)
	if progress.KnownCount != 1 {
		t.Errorf("expected 1 known card, got %d", progress.KnownCount)
	}

	out, err = runCLI(t, rt, nil, "unknown", id, "1")
	if err != nil {
		t.Fatalf("unknown command failed: %v", err)
	}
	marked = decodeOutput[ops.MarkFlashcardOutput](t, out)
	if marked.KnownCount != 0 {
		t.Errorf("expected 0 known cards, got %d", marked.KnownCount)
	}

	t.Run("bad index", func(t *testing.T) {
		_, err := runCLI(t, rt, nil, "known", id, "first")
		expectCode(t, err, "INVALID_REQUEST")
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := runCLI(t, rt, nil, "known", id)
		expectCode(t, err, "INVALID_REQUEST")
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := runCLI(t, rt, nil, "known", id, "7")
		if err == nil {
			t.Fatal("expected error for out of range index")
		}
	})
}

func TestCLIQuiz(t *testing.T) {
	color.NoColor = true
	rt := setupTestRuntime(t)
	id := seedCapsule(t, rt, "Quiz me")

	// An unrecognized answer is asked again
	out, err := runCLI(t, rt, strPtr("x\na\nC\n"), "quiz", id)
	if err != nil {
		t.Fatalf("quiz command failed: %v", err)
	}

	for _, want := range []string{
		"Question 1/2: Largest organelle?",
		"A) Nucleus",
		"Answer with A, B, C or D.",
		"Correct!",
		"It holds the DNA.",
		"Wrong. The answer is B.",
		"Score: 50%  Best: 50%",
		"New best score!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\nOutput: %s", want, out)
		}
	}

	progress, err := ops.GetProgress(context.Background(), rt.store, ops.ProgressInput{ID: id})
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.BestScore != 50 {
		t.Errorf("expected best score 50, got %d", progress.BestScore)
	}

	t.Run("lower score keeps best", func(t *testing.T) {
		out, err := runCLI(t, rt, strPtr("B\nA\n"), "quiz", id)
		if err != nil {
			t.Fatalf("quiz command failed: %v", err)
		}
		if !strings.Contains(out, "Score: 0%  Best: 50%") {
			t.Errorf("unexpected summary\nOutput: %s", out)
		}
		if strings.Contains(out, "New best score!") {
			t.Error("did not expect a new best score")
		}
	})

	t.Run("input ends early", func(t *testing.T) {
		_, err := runCLI(t, rt, strPtr("A\n"), "quiz", id)
		expectCode(t, err, "CANCELLED")
	})

	t.Run("no quiz questions", func(t *testing.T) {
		out, err := ops.Save(context.Background(), rt.store, ops.SaveInput{Capsule: &capsule.Capsule{
			Meta:  capsule.Meta{Title: "Notes only"},
			Notes: []string{"Just a note."},
		}})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		_, err = runCLI(t, rt, strPtr(""), "quiz", out.ID)
		expectCode(t, err, "INVALID_REQUEST")
	})
}

func TestCLILibrary(t *testing.T) {
	color.NoColor = true
	rt := setupTestRuntime(t)

	out, err := runCLI(t, rt, nil, "library")
	if err != nil {
		t.Fatalf("library command failed: %v", err)
	}
	if !strings.Contains(out, "No capsules yet.") {
		t.Errorf("expected empty state, got %q", out)
	}

	id := seedCapsule(t, rt, "Cell Biology")
	if _, err := ops.RecordScore(context.Background(), rt.store, ops.RecordScoreInput{ID: id, Score: 50}); err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}

	out, err = runCLI(t, rt, nil, "library")
	if err != nil {
		t.Fatalf("library command failed: %v", err)
	}
	for _, want := range []string{
		"Cell Biology  [Beginner]  Biology",
		"1 note, 2 flashcards, 2 questions",
		"quiz 50%  known 0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\nOutput: %s", want, out)
		}
	}
}

func TestCLICheck(t *testing.T) {
	rt := setupTestRuntime(t)
	seedCapsule(t, rt, "Indexed")

	out, err := runCLI(t, rt, nil, "check")
	if err != nil {
		t.Fatalf("check command failed: %v", err)
	}
	output := decodeOutput[ops.CheckOutput](t, out)
	if output.Indexed != 1 {
		t.Errorf("expected 1 indexed capsule, got %d", output.Indexed)
	}
	if output.Pruned {
		t.Error("expected pruned=false without --prune")
	}
}
