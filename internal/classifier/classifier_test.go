package classifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"scontrini/internal/core"
	"scontrini/internal/log"
)

type fakeModel struct {
	content string
	err     error
	calls   int
}

func (f *fakeModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func newService(llm llms.Model) *Service {
	return &Service{llm: llm, model: "test", logger: log.New(slog.LevelError, "test")}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		labels []string
		want   string
	}{
		{"case-insensitive match", "Benign", DefaultLabels, "benign"},
		{"whitespace trimmed", "  MALICIOUS  ", DefaultLabels, "malicious"},
		{"outside set becomes unknown", "c", []string{"a", "b"}, "unknown"},
		{"empty becomes unknown", "", DefaultLabels, "unknown"},
		{"custom labels keep their casing", "SPAM", []string{"Spam", "Ham"}, "Spam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLabel(tt.raw, tt.labels); got != tt.want {
				t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("hello", []string{"a", "b"})
	if !strings.Contains(prompt, "a, b") {
		t.Errorf("prompt missing label set: %q", prompt)
	}
	if !strings.Contains(prompt, "Input: hello") {
		t.Errorf("prompt missing input: %q", prompt)
	}
}

func TestClassify(t *testing.T) {
	t.Run("empty input is an input failure", func(t *testing.T) {
		svc := newService(&fakeModel{})
		_, err := svc.Classify(context.Background(), "   ", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := core.KindOf(err); kind != core.FailureInput {
			t.Errorf("kind = %q, want %q", kind, core.FailureInput)
		}
	})

	t.Run("no configured model short-circuits to unknown", func(t *testing.T) {
		svc := newService(nil)
		res, err := svc.Classify(context.Background(), "some text", nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Label != UnknownLabel || res.Reason == "" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("model answer is normalized", func(t *testing.T) {
		model := &fakeModel{content: `{"label": "BENIGN", "reason": "looks harmless"}`}
		svc := newService(model)
		res, err := svc.Classify(context.Background(), "hello world", nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Label != "benign" || res.Reason != "looks harmless" {
			t.Errorf("result = %+v", res)
		}
		if model.calls != 1 {
			t.Errorf("calls = %d", model.calls)
		}
	})

	t.Run("missing reason gets a placeholder", func(t *testing.T) {
		svc := newService(&fakeModel{content: `{"label": "benign"}`})
		res, err := svc.Classify(context.Background(), "hello", nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Reason != "No reason supplied." {
			t.Errorf("reason = %q", res.Reason)
		}
	})

	t.Run("caller labels constrain normalization", func(t *testing.T) {
		svc := newService(&fakeModel{content: `{"label": "benign", "reason": "x"}`})
		res, err := svc.Classify(context.Background(), "hello", []string{"spam", "ham"})
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Label != UnknownLabel {
			t.Errorf("label = %q, want %q", res.Label, UnknownLabel)
		}
	})

	t.Run("model error is a capability failure", func(t *testing.T) {
		svc := newService(&fakeModel{err: errors.New("upstream down")})
		_, err := svc.Classify(context.Background(), "hello", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := core.KindOf(err); kind != core.FailureFailed {
			t.Errorf("kind = %q, want %q", kind, core.FailureFailed)
		}
	})

	t.Run("non-JSON model answer is a capability failure", func(t *testing.T) {
		svc := newService(&fakeModel{content: "definitely benign"})
		_, err := svc.Classify(context.Background(), "hello", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := core.KindOf(err); kind != core.FailureFailed {
			t.Errorf("kind = %q, want %q", kind, core.FailureFailed)
		}
	})
}
