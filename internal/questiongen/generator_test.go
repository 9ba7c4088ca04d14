package questiongen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/grammiz/internal/llm"
)

func questionSetJSON(topics ...string) json.RawMessage {
	type out struct {
		Question     string   `json:"question"`
		Translation  string   `json:"translation"`
		Options      []string `json:"options"`
		AnswerIndex  int      `json:"answerIndex"`
		Explanation  string   `json:"explanation"`
		GrammarPoint string   `json:"grammarPoint"`
	}
	var set struct {
		Questions []out `json:"questions"`
	}
	for i, topic := range topics {
		set.Questions = append(set.Questions, out{
			Question:     strings.Repeat("x", i+1) + " She ____ in Beijing since 2010.",
			Translation:  "自2010年以来她一直住在北京。",
			Options:      []string{"lives", "lived", "has lived", "is living"},
			AnswerIndex:  2,
			Explanation:  "since 引导的时间状语用现在完成时。",
			GrammarPoint: topic,
		})
	}
	b, _ := json.Marshal(set)
	return b
}

func TestGenerate_QuestionSet(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: questionSetJSON("时态语态", "时态语态", "冠词"),
	})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), GenerateInput{Count: 3, Difficulty: DifficultyHard})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("got %d questions, want 3", len(qs))
	}

	q := qs[0]
	if !strings.HasSuffix(q.Text, "She ____ in Beijing since 2010.") {
		t.Errorf("unexpected text: %q", q.Text)
	}
	if q.AnswerIndex != 2 || !q.IsCorrect(2) || q.IsCorrect(0) {
		t.Errorf("unexpected answer index %d", q.AnswerIndex)
	}
	if q.Difficulty != DifficultyHard {
		t.Errorf("difficulty = %q, want hard", q.Difficulty)
	}
	if q.Translation == "" {
		t.Error("translation dropped")
	}

	ids := map[string]bool{}
	for _, q := range qs {
		if q.ID == "" || ids[q.ID] {
			t.Errorf("bad or duplicate ID %q", q.ID)
		}
		ids[q.ID] = true
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: questionSetJSON("冠词")})
	gen := New(mock, DefaultConfig())

	_, err := gen.Generate(context.Background(), GenerateInput{Count: 1, Topics: []string{"冠词"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := mock.Calls[0]
	if req.Schema != QuestionSetSchema {
		t.Error("expected question set schema")
	}
	if req.System == "" {
		t.Error("expected system prompt")
	}
	msg := req.Messages[0].Content
	if !strings.Contains(msg, "Number of questions: 1") {
		t.Errorf("missing count in %q", msg)
	}
	if !strings.Contains(msg, "Difficulty: medium") {
		t.Errorf("empty difficulty should default to medium: %q", msg)
	}
	if !strings.Contains(msg, "1. 冠词") {
		t.Errorf("missing focus topic in %q", msg)
	}
}

func TestGenerate_CodeFences(t *testing.T) {
	fenced := "```json\n" + string(questionSetJSON("介词")) + "\n```"
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fenced)})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), GenerateInput{Count: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qs[0].GrammarPoint != "介词" {
		t.Errorf("grammar point = %q", qs[0].GrammarPoint)
	}
}

func TestGenerate_TruncatesToCount(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: questionSetJSON("冠词", "冠词", "冠词", "冠词"),
	})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), GenerateInput{Count: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Errorf("got %d questions, want 2", len(qs))
	}
}

func TestGenerate_DropsInvalidQuestions(t *testing.T) {
	content := json.RawMessage(`{"questions":[
		{"question":"","translation":"","options":["a","b"],"answerIndex":0,"explanation":"e","grammarPoint":"冠词"},
		{"question":"He is ____ honest boy.","translation":"","options":["a","an"],"answerIndex":1,"explanation":"元音音素前用 an","grammarPoint":"冠词"},
		{"question":"Bad index","translation":"","options":["a","b"],"answerIndex":5,"explanation":"e","grammarPoint":"冠词"}
	]}`)
	mock := llm.NewMockProvider(llm.MockResponse{Content: content})
	gen := New(mock, DefaultConfig())

	qs, err := gen.Generate(context.Background(), GenerateInput{Count: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 1 || qs[0].Text != "He is ____ honest boy." {
		t.Errorf("unexpected questions: %+v", qs)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     GenerateInput
		response  llm.MockResponse
		wantValid bool // *ValidationError rather than *GenerationError
	}{
		{
			name:      "zero count",
			input:     GenerateInput{Count: 0},
			wantValid: true,
		},
		{
			name:      "negative count",
			input:     GenerateInput{Count: -1},
			wantValid: true,
		},
		{
			name:      "count over max",
			input:     GenerateInput{Count: 21},
			wantValid: true,
		},
		{
			name:     "provider error",
			input:    GenerateInput{Count: 1},
			response: llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("401")}},
		},
		{
			name:     "unparseable",
			input:    GenerateInput{Count: 1},
			response: llm.MockResponse{Content: json.RawMessage(`not json`)},
		},
		{
			name:     "empty set",
			input:    GenerateInput{Count: 1},
			response: llm.MockResponse{Content: json.RawMessage(`{"questions":[]}`)},
		},
		{
			name:     "all rejected",
			input:    GenerateInput{Count: 1, Topics: []string{"冠词"}},
			response: llm.MockResponse{Content: questionSetJSON("介词")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(tt.response)
			gen := New(mock, DefaultConfig())

			_, err := gen.Generate(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}

			var verr *ValidationError
			var gerr *GenerationError
			if tt.wantValid {
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T: %v", err, err)
				}
				if mock.CallCount() != 0 {
					t.Error("provider called for invalid input")
				}
				return
			}
			if !errors.As(err, &gerr) {
				t.Fatalf("expected *GenerationError, got %T: %v", err, err)
			}
		})
	}
}

func TestGenerate_ProviderErrorIsUnwrappable(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrTimeout{}})
	gen := New(mock, DefaultConfig())

	_, err := gen.Generate(context.Background(), GenerateInput{Count: 1})
	if !llm.IsTimeout(err) {
		t.Errorf("expected timeout to be visible through GenerationError, got %v", err)
	}
}
