// Package story turns a scenario plus entity list into a structured storybook:
// ordered scenes with image prompts, enriched entity appearances and story
// metadata. The heavy lifting happens in chat-completion calls; this package
// owns prompt assembly and response normalization.
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"storybook/internal/domain"
	"storybook/internal/providers/openai"
)

// Request carries everything needed to generate one story.
type Request struct {
	Scenario string
	Language string
	Pages    int
	Entities []domain.Entity
}

// Generator produces a full storybook for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*domain.Story, error)
}

// Options configures a Builder.
type Options struct {
	Client      *openai.Client
	TextModel   string // scene generation and entity extraction
	DetailModel string // appearance enrichment and metadata
	Fallback    Generator
	OnFallback  func(reason string, err error)
	Concurrency int // bound for parallel appearance enrichment
}

const (
	defaultTextModel   = "gpt-4o"
	defaultDetailModel = "gpt-4o-mini"
	defaultConcurrency = 4
)

// Builder implements Generator on top of a chat-completions client, with an
// optional fallback used when the upstream is unavailable.
type Builder struct {
	client      *openai.Client
	textModel   string
	detailModel string
	fallback    Generator
	onFallback  func(reason string, err error)
	concurrency int
}

// NewBuilder constructs a Builder. A nil client is allowed; every request then
// goes through the fallback.
func NewBuilder(opts Options) *Builder {
	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}
	detailModel := strings.TrimSpace(opts.DetailModel)
	if detailModel == "" {
		detailModel = defaultDetailModel
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticGenerator()
	}
	return &Builder{
		client:      opts.Client,
		textModel:   textModel,
		detailModel: detailModel,
		fallback:    fallback,
		onFallback:  opts.OnFallback,
		concurrency: concurrency,
	}
}

// Generate runs the four-step pipeline: scenes, entity extraction, appearance
// enrichment, metadata.
func (b *Builder) Generate(ctx context.Context, req Request) (*domain.Story, error) {
	req.Pages = domain.ClampPageCount(req.Pages)
	if req.Language == "" {
		req.Language = "english"
	}
	if strings.TrimSpace(req.Scenario) == "" {
		return nil, fmt.Errorf("%w: scenario is required", domain.ErrInvalidRequest)
	}

	if b.client == nil {
		return b.useFallback(ctx, req, "no_client", nil)
	}

	scenes, err := b.generateScenes(ctx, req)
	if err != nil {
		return b.useFallback(ctx, req, "scenes", err)
	}
	if len(scenes) == 0 {
		return b.useFallback(ctx, req, "empty_scenes", errors.New("no scenes generated"))
	}

	entities, err := b.extractEntities(ctx, scenes, req.Entities)
	if err != nil {
		// Extraction is an enrichment step; the requested entities are still
		// a usable cast on their own.
		entities = req.Entities
	}

	if err := b.enrichEntities(ctx, entities); err != nil {
		return nil, err
	}

	metadata, err := b.generateMetadata(ctx, scenes)
	if err != nil {
		metadata = fallbackMetadata(req)
	}

	return &domain.Story{
		Metadata: metadata,
		Scenes:   scenes,
		Entities: entities,
	}, nil
}

func (b *Builder) generateScenes(ctx context.Context, req Request) ([]domain.Scene, error) {
	raw, err := b.client.ChatJSON(ctx, openai.ChatParams{
		Model:       b.textModel,
		System:      scenesSystemPrompt,
		User:        buildScenesPrompt(req),
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}
	payload, err := parseModelPayload[scenesPayload](raw)
	if err != nil {
		return nil, fmt.Errorf("parse scenes payload: %w", err)
	}
	return normalizeScenes(payload.Scenes), nil
}

func (b *Builder) extractEntities(ctx context.Context, scenes []domain.Scene, requested []domain.Entity) ([]domain.Entity, error) {
	raw, err := b.client.ChatJSON(ctx, openai.ChatParams{
		Model:       b.textModel,
		System:      extractSystemPrompt,
		User:        buildExtractPrompt(scenes, requested),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	payload, err := parseModelPayload[entitiesPayload](raw)
	if err != nil {
		return nil, fmt.Errorf("parse entities payload: %w", err)
	}
	return mergeEntities(requested, payload.Entities), nil
}

// enrichEntities fills detailed_appearance for entities missing one. Entities
// that already carry a detailed appearance keep it verbatim so their look
// stays stable across stories.
func (b *Builder) enrichEntities(ctx context.Context, entities []domain.Entity) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range entities {
		if entities[i].DetailedAppearance != "" || entityKey(entities[i].Name) == "" {
			continue
		}
		i := i
		g.Go(func() error {
			raw, err := b.client.ChatJSON(ctx, openai.ChatParams{
				Model:       b.detailModel,
				System:      appearanceSystemPrompt,
				User:        buildAppearancePrompt(entities[i]),
				Temperature: 0.6,
			})
			if err != nil {
				return fmt.Errorf("enrich entity %q: %w", entities[i].Name, err)
			}
			payload, err := parseModelPayload[appearancePayload](raw)
			if err != nil {
				return fmt.Errorf("parse appearance payload for %q: %w", entities[i].Name, err)
			}
			entities[i].DetailedAppearance = strings.TrimSpace(payload.DetailedAppearance)
			return nil
		})
	}
	return g.Wait()
}

func (b *Builder) generateMetadata(ctx context.Context, scenes []domain.Scene) (domain.StoryMetadata, error) {
	raw, err := b.client.ChatJSON(ctx, openai.ChatParams{
		Model:       b.detailModel,
		System:      metadataSystemPrompt,
		User:        buildMetadataPrompt(scenes),
		Temperature: 0.6,
	})
	if err != nil {
		return domain.StoryMetadata{}, err
	}
	payload, err := parseModelPayload[metadataPayload](raw)
	if err != nil {
		return domain.StoryMetadata{}, fmt.Errorf("parse metadata payload: %w", err)
	}
	return domain.StoryMetadata{
		Title:    strings.TrimSpace(payload.Title),
		Genre:    strings.TrimSpace(payload.Genre),
		Keywords: dedupeKeywords(payload.Keywords),
	}, nil
}

func (b *Builder) useFallback(ctx context.Context, req Request, reason string, cause error) (*domain.Story, error) {
	if b.onFallback != nil {
		b.onFallback(reason, cause)
	}
	return b.fallback.Generate(ctx, req)
}

func fallbackMetadata(req Request) domain.StoryMetadata {
	title := truncateRunes(strings.TrimSpace(req.Scenario), 60)
	return domain.StoryMetadata{
		Title:    coalesce(title, "Untitled Story"),
		Genre:    "adventure",
		Keywords: []string{"story"},
	}
}

var _ Generator = (*Builder)(nil)
