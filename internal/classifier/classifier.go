// Package classifier is a small text-classification service backed by
// an OpenAI-compatible chat model. It labels free text against a fixed
// label set and degrades to "unknown" when no model is configured.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"scontrini/internal/core"
	"scontrini/internal/log"
)

// DefaultLabels is the label set used when the caller supplies none.
var DefaultLabels = []string{"malicious", "suspicious", "benign", "unknown"}

// UnknownLabel is returned when no configured label matches.
const UnknownLabel = "unknown"

// ErrEmptyInput rejects classification requests without text.
var ErrEmptyInput = errors.New("input text is required for classification")

const requestTimeout = 20 * time.Second

const systemPrompt = "You are a concise security classifier."

// Result is one classification verdict.
type Result struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// Config selects the chat model. An empty APIKey disables the model;
// the service then answers every request with the unknown label.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Service classifies text. The llm field is nil when no key is
// configured.
type Service struct {
	llm    llms.Model
	model  string
	logger *log.Logger
}

// NewService builds the service. A missing API key is not an error;
// it selects the configuration-absent short-circuit.
func NewService(cfg Config, logger *log.Logger) (*Service, error) {
	s := &Service{model: cfg.Model, logger: logger.WithComponent("classifier")}
	if strings.TrimSpace(cfg.APIKey) == "" {
		s.logger.Warn("No API key configured, answering all requests with the unknown label")
		return s, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	s.llm = llm
	return s, nil
}

// buildPrompt asks for strict JSON so the answer parses mechanically.
func buildPrompt(text string, labels []string) string {
	return "Classify the provided input into exactly one label from this set: " +
		strings.Join(labels, ", ") + ".\n" +
		`Respond with strict JSON in this shape: {"label": "<one label>", "reason": "<short reason>"}.` + "\n" +
		"Input: " + text
}

// NormalizeLabel maps a raw model label onto the allowed set,
// case-insensitively. Anything outside the set becomes unknown.
func NormalizeLabel(raw string, labels []string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	for _, label := range labels {
		if clean == strings.ToLower(label) {
			return label
		}
	}
	return UnknownLabel
}

// Classify labels text against labels (DefaultLabels when empty).
// Empty text is an input failure; a broken or incoherent model is a
// capability failure.
func (s *Service) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, core.Failure("classify", core.FailureInput, ErrEmptyInput)
	}
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	if s.llm == nil {
		return Result{
			Label:  UnknownLabel,
			Reason: "No API key is configured, so model classification was skipped.",
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(text, labels)),
	}
	resp, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		return Result{}, core.Failure("classify", core.FailureFailed, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, core.Failure("classify", core.FailureFailed, errors.New("model returned no choices"))
	}

	raw := strings.TrimSpace(resp.Choices[0].Content)
	var payload Result
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Result{}, core.Failure("classify", core.FailureFailed,
			fmt.Errorf("model did not return valid JSON: %s", raw))
	}

	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		reason = "No reason supplied."
	}
	result := Result{
		Label:  NormalizeLabel(payload.Label, labels),
		Reason: reason,
	}
	s.logger.DebugContext(ctx, "Classified text", "label", result.Label, "chars", len(text))
	return result, nil
}
