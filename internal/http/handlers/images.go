package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"storybook/internal/domain"
	imageprovider "storybook/internal/providers/image"
	"storybook/internal/providers/openai"

	"storybook/internal/middleware"
)

type imageGenerateRequest struct {
	Provider    string          `json:"provider"`
	ImageModel  string          `json:"image_model"`
	Size        string          `json:"size"`
	Quality     string          `json:"quality"`
	ImagePrompt string          `json:"image_prompt"`
	Style       string          `json:"style"`
	Entities    []domain.Entity `json:"entities"`
	Store       bool            `json:"store"`
	PanelID     int64           `json:"panel_id"`
	ComicID     int64           `json:"comic_id"`
	Cover       bool            `json:"cover"`
}

type imageGenerateResponse struct {
	ImageB64      string `json:"image_b64,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	Model         string `json:"model"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	ImagePath     string `json:"image_path,omitempty"`
}

func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImagePrompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_prompt is required")
		return
	}

	provider, err := openai.NormalizeProvider(req.Provider)
	if err != nil {
		a.fail(w, r, err, "unsupported provider")
		return
	}
	generator, ok := a.ImageProviders[provider]
	if !ok {
		a.error(w, http.StatusBadRequest, "unsupported_provider", fmt.Sprintf("provider %q is not configured", provider))
		return
	}

	result, err := generator.Generate(r.Context(), imageprovider.Request{
		Prompt:   req.ImagePrompt,
		Style:    req.Style,
		Model:    req.ImageModel,
		Size:     req.Size,
		Quality:  req.Quality,
		Entities: req.Entities,
	})
	if err != nil {
		a.fail(w, r, err, "image generation failed")
		return
	}

	resp := imageGenerateResponse{
		ImageB64:      result.B64,
		ImageURL:      result.URL,
		Model:         result.Model,
		RevisedPrompt: result.RevisedPrompt,
	}

	if req.Store && result.B64 != "" && a.Store != nil {
		data, err := base64.StdEncoding.DecodeString(result.B64)
		if err != nil {
			a.fail(w, r, fmt.Errorf("decode generated image: %w", err), "image decoding failed")
			return
		}
		name := middleware.RequestIDFromContext(r.Context())
		if name == "" {
			name = uuid.NewString()
		}
		key := fmt.Sprintf("images/%s.png", name)
		stored, err := a.Store.Write(r.Context(), key, data)
		if err != nil {
			a.fail(w, r, err, "failed to store image")
			return
		}
		resp.ImagePath = stored
		if req.PanelID > 0 && a.Comics != nil {
			if err := a.Comics.UpdatePanelImage(r.Context(), req.PanelID, stored); err != nil {
				a.fail(w, r, err, "failed to attach image to panel")
				return
			}
		}
		if req.Cover && req.ComicID > 0 && a.Comics != nil {
			if err := a.Comics.UpdateComicCover(r.Context(), req.ComicID, stored); err != nil {
				a.fail(w, r, err, "failed to set comic cover")
				return
			}
		}
	}

	a.json(w, http.StatusOK, resp)
}
