package handlers

import (
	"context"
	"net/http"
	"strings"

	"storybook/internal/domain"
	"storybook/internal/middleware"
	"storybook/internal/story"
)

type storyGenerateRequest struct {
	UserID        int64           `json:"user_id"`
	Scenario      string          `json:"scenario"`
	Language      string          `json:"language"`
	NumberOfPages int             `json:"number_of_pages"`
	Entities      []domain.Entity `json:"entities"`
	Persist       bool            `json:"persist"`
	ComicName     string          `json:"comic_name"`
}

type storyGenerateResponse struct {
	domain.Story
	ComicID *int64 `json:"comic_id,omitempty"`
}

func (a *App) StoriesGenerate(w http.ResponseWriter, r *http.Request) {
	var req storyGenerateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "scenario is required")
		return
	}
	if req.Persist && req.UserID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id is required to persist")
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = middleware.LanguageFromContext(r.Context())
	}

	generated, err := a.Story.Generate(r.Context(), story.Request{
		Scenario: req.Scenario,
		Language: language,
		Pages:    req.NumberOfPages,
		Entities: req.Entities,
	})
	if err != nil {
		a.fail(w, r, err, "story generation failed")
		return
	}

	resp := storyGenerateResponse{Story: *generated}
	if req.Persist {
		comicID, err := a.persistStory(r.Context(), req, generated)
		if err != nil {
			a.fail(w, r, err, "failed to persist story")
			return
		}
		resp.ComicID = &comicID
	}

	a.json(w, http.StatusOK, resp)
}

func (a *App) persistStory(ctx context.Context, req storyGenerateRequest, generated *domain.Story) (int64, error) {
	if a.Comics == nil {
		return 0, domain.ErrNoPersistence
	}

	comicName := strings.TrimSpace(req.ComicName)
	if comicName == "" {
		comicName = generated.Metadata.Title
	}
	comic := &domain.Comic{
		UserID:      req.UserID,
		ComicName:   comicName,
		Title:       generated.Metadata.Title,
		Genre:       generated.Metadata.Genre,
		Keywords:    generated.Metadata.Keywords,
		Description: req.Scenario,
	}

	panels := make([]domain.Panel, len(generated.Scenes))
	for i, scene := range generated.Scenes {
		panels[i] = domain.Panel{
			PanelIndex:  scene.Index,
			Text:        scene.Text,
			ImagePrompt: scene.Image.Prompt,
		}
	}

	characters := make([]domain.Character, 0, len(generated.Entities))
	for _, entity := range generated.Entities {
		if strings.TrimSpace(entity.Name) == "" {
			continue
		}
		characters = append(characters, domain.Character{
			Name:               entity.Name,
			Appearance:         entity.Appearance,
			DetailedAppearance: entity.DetailedAppearance,
		})
	}

	created, err := a.Comics.CreateComic(ctx, comic, panels, characters)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}
