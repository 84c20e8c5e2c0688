package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"storybook/internal/domain"
	"storybook/pkg/zip"
)

type comicSummary struct {
	ComicID        int64     `json:"comic_id"`
	ComicName      string    `json:"comic_name"`
	Title          string    `json:"title"`
	Genre          string    `json:"genre"`
	Keywords       []string  `json:"keywords"`
	Description    string    `json:"description"`
	CoverImagePath string    `json:"cover_image_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type panelView struct {
	PanelID     int64  `json:"panel_id"`
	PanelIndex  int    `json:"panel_index"`
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
	ImagePath   string `json:"image_path,omitempty"`
}

type characterView struct {
	CharacterID        int64  `json:"character_id"`
	Name               string `json:"name"`
	Appearance         string `json:"appearance,omitempty"`
	DetailedAppearance string `json:"detailed_appearance,omitempty"`
}

type comicDetail struct {
	comicSummary
	Panels     []panelView     `json:"panels"`
	Characters []characterView `json:"characters"`
}

func toComicSummary(c *domain.Comic) comicSummary {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return comicSummary{
		ComicID:        c.ID,
		ComicName:      c.ComicName,
		Title:          c.Title,
		Genre:          c.Genre,
		Keywords:       keywords,
		Description:    c.Description,
		CoverImagePath: c.CoverImagePath,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (a *App) requireComics(w http.ResponseWriter) bool {
	if a.Comics == nil {
		a.error(w, http.StatusServiceUnavailable, "no_persistence", "persistence is not configured")
		return false
	}
	return true
}

func comicIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "comicID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid comic id %q", domain.ErrInvalidRequest, raw)
	}
	return id, nil
}

func (a *App) ComicsList(w http.ResponseWriter, r *http.Request) {
	if !a.requireComics(w) {
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id query parameter is required")
		return
	}

	comics, err := a.Comics.ListComicsByUser(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err, "failed to list comics")
		return
	}

	out := make([]comicSummary, len(comics))
	for i := range comics {
		out[i] = toComicSummary(&comics[i])
	}
	a.json(w, http.StatusOK, map[string]any{"comics": out})
}

func (a *App) ComicsGet(w http.ResponseWriter, r *http.Request) {
	if !a.requireComics(w) {
		return
	}
	comicID, err := comicIDParam(r)
	if err != nil {
		a.fail(w, r, err, "invalid comic id")
		return
	}

	detail, err := a.loadComicDetail(r, comicID)
	if err != nil {
		a.fail(w, r, err, "comic not found")
		return
	}
	a.json(w, http.StatusOK, detail)
}

func (a *App) loadComicDetail(r *http.Request, comicID int64) (*comicDetail, error) {
	ctx := r.Context()
	comic, err := a.Comics.GetComic(ctx, comicID)
	if err != nil {
		return nil, err
	}
	panels, err := a.Comics.ListPanels(ctx, comicID)
	if err != nil {
		return nil, err
	}
	characters, err := a.Comics.ListCharacters(ctx, comicID)
	if err != nil {
		return nil, err
	}

	detail := &comicDetail{
		comicSummary: toComicSummary(comic),
		Panels:       make([]panelView, len(panels)),
		Characters:   make([]characterView, len(characters)),
	}
	for i, p := range panels {
		detail.Panels[i] = panelView{
			PanelID:     p.ID,
			PanelIndex:  p.PanelIndex,
			Text:        p.Text,
			ImagePrompt: p.ImagePrompt,
			ImagePath:   p.ImagePath,
		}
	}
	for i, c := range characters {
		detail.Characters[i] = characterView{
			CharacterID:        c.ID,
			Name:               c.Name,
			Appearance:         c.Appearance,
			DetailedAppearance: c.DetailedAppearance,
		}
	}
	return detail, nil
}

// ComicsExport bundles a comic's metadata and any stored panel illustrations
// into a zip download.
func (a *App) ComicsExport(w http.ResponseWriter, r *http.Request) {
	if !a.requireComics(w) {
		return
	}
	comicID, err := comicIDParam(r)
	if err != nil {
		a.fail(w, r, err, "invalid comic id")
		return
	}

	detail, err := a.loadComicDetail(r, comicID)
	if err != nil {
		a.fail(w, r, err, "comic not found")
		return
	}

	manifest, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		a.fail(w, r, err, "failed to build export")
		return
	}
	entries := []zip.Entry{{Filename: "story.json", Data: manifest}}

	if a.Store != nil {
		for _, p := range detail.Panels {
			if p.ImagePath == "" {
				continue
			}
			data, err := a.Store.Read(r.Context(), p.ImagePath)
			if err != nil {
				a.Logger.Warn().Err(err).Int64("panel_id", p.PanelID).Msg("skipping missing panel image")
				continue
			}
			name := fmt.Sprintf("panels/%03d%s", p.PanelIndex, path.Ext(p.ImagePath))
			entries = append(entries, zip.Entry{Filename: name, Data: data})
		}
	}

	archive := zip.Archive(entries)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=comic-%d.zip", comicID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
