// Package image renders illustration prompts into images through the OpenAI
// or Azure OpenAI image APIs. It owns the final prompt assembly: style
// direction, the scene prompt itself, and appearance conditioning for every
// entity referenced by the prompt.
package image

import (
	"context"
	"fmt"
	"strings"

	"storybook/internal/domain"
	"storybook/internal/providers/openai"
	"storybook/internal/story/styles"
)

// Request describes a normalized image generation request.
type Request struct {
	Prompt   string
	Style    string
	Model    string
	Size     string
	Quality  string
	Entities []domain.Entity
}

// Result represents one generated image in whichever form the vendor chose.
type Result struct {
	B64           string
	URL           string
	Model         string
	RevisedPrompt string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

const (
	defaultModel = "dall-e-3"
	defaultSize  = "1024x1024"

	// dall-e-2 accepts much shorter prompts than the newer models.
	maxPromptDallE2 = 1000
	maxPromptLong   = 4000
)

var modelCanonical = map[string]string{
	"dall-e-2":    "dall-e-2",
	"dall-e-3":    "dall-e-3",
	"gpt-image-1": "gpt-image-1",
}

var modelAliases = map[string]string{
	"dalle-2":   "dall-e-2",
	"dalle2":    "dall-e-2",
	"dalle-3":   "dall-e-3",
	"dalle3":    "dall-e-3",
	"gpt-image": "gpt-image-1",
	"gptimage1": "gpt-image-1",
}

// NormalizeModel resolves a requested image model to a supported one. The
// second return names the reason when the input was not used as-is.
func NormalizeModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := modelCanonical[normalized]; ok {
		return canonical, ""
	}
	if canonical, ok := modelAliases[normalized]; ok {
		return canonical, "alias"
	}
	return defaultModel, "defaulted"
}

// Options configures an OpenAIGenerator.
type Options struct {
	Client    *openai.Client
	Model     string
	Size      string
	Quality   string
	OnWarning func(reason, detail string)
}

// OpenAIGenerator implements Generator for both OpenAI and Azure, depending
// on how the underlying client was configured.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	size    string
	quality string
}

// NewOpenAIGenerator validates options and constructs a generator.
func NewOpenAIGenerator(opts Options) (*OpenAIGenerator, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("image: client is required")
	}
	model, reason := NormalizeModel(opts.Model)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", opts.Model, model))
	}
	size := strings.TrimSpace(opts.Size)
	if size == "" {
		size = defaultSize
	}
	return &OpenAIGenerator{
		client:  opts.Client,
		model:   model,
		size:    size,
		quality: strings.TrimSpace(opts.Quality),
	}, nil
}

// Generate renders one image for the request.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: image prompt is required", domain.ErrInvalidRequest)
	}

	model := g.model
	if req.Model != "" {
		model, _ = NormalizeModel(req.Model)
	}
	size := coalesce(req.Size, g.size)
	quality := coalesce(req.Quality, g.quality)

	full := BuildPrompt(prompt, req.Style, req.Entities)
	full = ClampPrompt(full, model)

	result, err := g.client.GenerateImage(ctx, openai.ImageParams{
		Model:   model,
		Prompt:  full,
		Size:    size,
		Quality: quality,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		B64:           result.B64,
		URL:           result.URL,
		Model:         model,
		RevisedPrompt: result.RevisedPrompt,
	}, nil
}

// BuildPrompt assembles the final illustration prompt: style direction first,
// then the scene prompt, then one appearance line per entity the prompt
// references. Conditioning on the stored detailed appearance is what keeps a
// character looking the same from panel to panel.
func BuildPrompt(prompt, style string, entities []domain.Entity) string {
	var b strings.Builder
	if direction := styles.Describe(style); direction != "" {
		b.WriteString(direction)
		b.WriteString("\n\n")
	}
	b.WriteString(prompt)

	lowerPrompt := strings.ToLower(prompt)
	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		appearance := strings.TrimSpace(coalesce(e.DetailedAppearance, e.Appearance))
		if appearance == "" {
			continue
		}
		if !strings.Contains(lowerPrompt, strings.ToLower(name)) {
			continue
		}
		fmt.Fprintf(&b, "\n%s looks like: %s", name, appearance)
	}
	return b.String()
}

// ClampPrompt bounds the prompt to the model's limit at a rune boundary.
func ClampPrompt(prompt, model string) string {
	limit := maxPromptLong
	if strings.Contains(model, "dall-e-2") {
		limit = maxPromptDallE2
	}
	runes := []rune(prompt)
	if len(runes) <= limit {
		return prompt
	}
	return string(runes[:limit])
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Generator = (*OpenAIGenerator)(nil)
