// Package vision analyzes images into structured appearance text suitable as
// entity appearance input for later story generation. Only the OpenAI vendor
// supports analysis; Azure requests are rejected up front.
package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"storybook/internal/domain"
	"storybook/internal/providers/openai"
)

// The instruction is fixed: the output feeds straight back into entity
// appearance fields, so it has to stay uniform across requests.
const appearanceInstruction = "Describe the person's appearance, including general details such as hair, clothing, " +
	"face shape, accessories, and facial expression, without making assumptions about their identity. " +
	"Always include the color, including skin color."

const (
	defaultModel    = "gpt-4o-mini"
	defaultCacheTTL = 24 * time.Hour
	maxTokens       = 300
)

// Analyzer turns image references into appearance descriptions. An empty
// model selects the analyzer's default.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, imageURL, model string) (string, error)
	AnalyzeBase64(ctx context.Context, imageBase64, model string) (string, error)
}

// Options configures an OpenAIAnalyzer.
type Options struct {
	Client   *openai.Client
	Model    string
	CacheTTL time.Duration
}

// OpenAIAnalyzer implements Analyzer using GPT vision chat calls. Identical
// portraits recur across requests, so results are cached by content hash.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	cache  *gocache.Cache
}

// NewOpenAIAnalyzer validates options and constructs an analyzer.
func NewOpenAIAnalyzer(opts Options) (*OpenAIAnalyzer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("vision: client is required")
	}
	if opts.Client.Provider() != openai.ProviderOpenAI {
		return nil, fmt.Errorf("%w: provider %q does not support image analysis", domain.ErrUnsupportedProvider, opts.Client.Provider())
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &OpenAIAnalyzer{
		client: opts.Client,
		model:  model,
		cache:  gocache.New(ttl, ttl),
	}, nil
}

// AnalyzeURL describes the image behind a public URL.
func (a *OpenAIAnalyzer) AnalyzeURL(ctx context.Context, imageURL, model string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", fmt.Errorf("%w: image_url is required", domain.ErrInvalidRequest)
	}
	return a.analyze(ctx, imageURL, model)
}

// AnalyzeBase64 describes an inline base64-encoded image.
func (a *OpenAIAnalyzer) AnalyzeBase64(ctx context.Context, imageBase64, model string) (string, error) {
	imageBase64 = strings.TrimSpace(imageBase64)
	if imageBase64 == "" {
		return "", fmt.Errorf("%w: image_base64 is required", domain.ErrInvalidRequest)
	}
	return a.analyze(ctx, "data:image/webp;base64,"+imageBase64, model)
}

func (a *OpenAIAnalyzer) analyze(ctx context.Context, imageRef, model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = a.model
	}
	key := cacheKey(model, imageRef)
	if cached, ok := a.cache.Get(key); ok {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	text, err := a.client.ChatVision(ctx, openai.VisionParams{
		Model:       model,
		Instruction: appearanceInstruction,
		ImageURL:    imageRef,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	a.cache.SetDefault(key, text)
	return text, nil
}

func cacheKey(model, imageRef string) string {
	sum := sha256.Sum256([]byte(model + "|" + imageRef))
	return hex.EncodeToString(sum[:])
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
