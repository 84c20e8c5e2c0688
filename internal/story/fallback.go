package story

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storybook/internal/domain"
)

// StaticGenerator produces a deterministic story without any upstream call.
// It keeps persistence and the HTTP surface exercisable in environments
// without API credentials.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

var staticBeats = []string{
	"The story opens and we meet the cast",
	"A challenge appears on the horizon",
	"The quest leads into unknown territory",
	"Everything comes to a head",
	"The dust settles and lessons are learned",
}

func (s *StaticGenerator) Generate(ctx context.Context, req Request) (*domain.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages := domain.ClampPageCount(req.Pages)
	c := cases.Title(language.Und)

	cast := "the heroes"
	if len(req.Entities) > 0 {
		names := make([]string, 0, len(req.Entities))
		for _, e := range req.Entities {
			if e.Name != "" {
				names = append(names, c.String(e.Name))
			}
		}
		if len(names) > 0 {
			cast = strings.Join(names, " and ")
		}
	}

	scenario := coalesce(strings.TrimSpace(req.Scenario), "an unexpected adventure")

	scenes := make([]domain.Scene, pages)
	for i := range scenes {
		beat := staticBeats[i*len(staticBeats)/pages]
		scenes[i] = domain.Scene{
			Index: i,
			Text:  truncateRunes(fmt.Sprintf("%s. %s face %s.", beat, cast, scenario), domain.MaxSceneTextLen),
			Image: domain.SceneImage{
				Prompt: fmt.Sprintf("Illustration of %s, scene %d of %d: %s", cast, i+1, pages, beat),
			},
		}
	}

	entities := make([]domain.Entity, len(req.Entities))
	copy(entities, req.Entities)
	for i := range entities {
		if entities[i].DetailedAppearance == "" {
			entities[i].DetailedAppearance = coalesce(entities[i].Appearance, entities[i].Description, "no distinctive features recorded")
		}
	}

	return &domain.Story{
		Metadata: domain.StoryMetadata{
			Title:    c.String(truncateRunes(scenario, 48)),
			Genre:    "adventure",
			Keywords: []string{"adventure", "storybook"},
		},
		Scenes:   scenes,
		Entities: entities,
	}, nil
}

var _ Generator = (*StaticGenerator)(nil)
