package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"scontrini/internal/core"
)

const visionTimeout = 20 * time.Second

const visionPrompt = "Extract purchased line items from this receipt image. " +
	"Return JSON only with `items`, where each item has `name` and numeric `amount`. " +
	"Exclude totals, taxes, payments, and store metadata."

// VisionConfig configures the structured extraction capability.
type VisionConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// VisionExtractor reads line items directly from a receipt image via a
// multimodal model.
type VisionExtractor struct {
	llm *openai.LLM
}

// NewVisionExtractor builds the extractor. The API key is required; the
// caller decides what to do when it is absent (the chain simply runs
// without structured extraction).
func NewVisionExtractor(cfg VisionConfig) (*VisionExtractor, error) {
	if cfg.APIKey == "" {
		return nil, core.Failure("vision", core.FailureUnavailable, fmt.Errorf("api key not configured"))
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
		return nil, fmt.Errorf("init vision model: %w", err)
	}
	return &VisionExtractor{llm: llm}, nil
}

type visionResponse struct {
	Items []struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	} `json:"items"`
}

// ExtractItems sends the image to the model and decodes its JSON reply.
func (v *VisionExtractor) ExtractItems(ctx context.Context, imagePath string) ([]core.Item, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read receipt image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(visionPrompt),
				llms.BinaryPart(mimeForImage(imagePath), data),
			},
		},
	}
	resp, err := v.llm.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("vision extraction call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision extraction returned no choices")
	}

	var parsed visionResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Content), &parsed); err != nil {
		return nil, fmt.Errorf("vision extraction returned non-JSON output: %w", err)
	}

	var items []core.Item
	for _, raw := range parsed.Items {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		items = append(items, core.Item{Name: name, Amount: centsFromFloat(raw.Amount)})
	}
	return items, nil
}

func centsFromFloat(v float64) core.Money {
	if v < 0 {
		return core.Money{Cents: int64(v*100 - 0.5)}
	}
	return core.Money{Cents: int64(v*100 + 0.5)}
}

func mimeForImage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
