package capsule

import "testing"

func TestLint_Valid(t *testing.T) {
	c := &Capsule{
		Flashcards: []Flashcard{{Front: "f", Back: "b"}},
		Quiz:       []QuizItem{{Question: "q", Choices: [4]string{"a", "b", "", ""}, Correct: 1}},
	}
	res := Lint(c)
	if !res.Valid || len(res.Problems) != 0 || len(res.Warnings) != 0 {
		t.Errorf("Lint() = %+v, want clean", res)
	}
}

func TestLint_CorrectOutOfRange(t *testing.T) {
	for _, correct := range []int{-1, 4, 10} {
		c := &Capsule{Quiz: []QuizItem{{Question: "q", Choices: [4]string{"a"}, Correct: correct}}}
		res := Lint(c)
		if res.Valid {
			t.Errorf("correct=%d: Valid = true, want false", correct)
			continue
		}
		if res.Problems[0].Field != "quiz[0].correct" {
			t.Errorf("correct=%d: Field = %q", correct, res.Problems[0].Field)
		}
	}
}

func TestLint_BlankCorrectChoice(t *testing.T) {
	c := &Capsule{Quiz: []QuizItem{{Question: "q", Choices: [4]string{"a", "b", "", ""}, Correct: 3}}}
	res := Lint(c)
	if res.Valid {
		t.Fatalf("Valid = true, want false: %+v", res)
	}
	if p := res.Problems[0]; p.Field != "quiz[0].choices" || p.Message != "the correct choice is blank" {
		t.Errorf("Problems[0] = %+v", p)
	}
}

func TestLint_Warnings(t *testing.T) {
	c := &Capsule{
		Flashcards: []Flashcard{{Front: "", Back: "b"}, {Front: "f", Back: " "}},
		Quiz:       []QuizItem{{Question: "q", Choices: [4]string{"a", "", "", ""}, Correct: 0}},
	}
	res := Lint(c)
	if !res.Valid {
		t.Fatalf("warnings should not invalidate: %+v", res)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("Warnings = %+v, want 2", res.Warnings)
	}
	fields := map[string]bool{}
	for _, w := range res.Warnings {
		fields[w.Field] = true
	}
	for _, f := range []string{"flashcards[0].front", "flashcards[1].back"} {
		if !fields[f] {
			t.Errorf("missing warning for %s", f)
		}
	}
}
