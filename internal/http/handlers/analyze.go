package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"storybook/internal/domain"
	"storybook/internal/providers/openai"
)

type analyzeURLRequest struct {
	Provider    string `json:"provider"`
	VisionModel string `json:"vision_model"`
	ImageURL    string `json:"image_url"`
}

type analyzeBase64Request struct {
	Provider    string `json:"provider"`
	VisionModel string `json:"vision_model"`
	ImageBase64 string `json:"image_base64"`
}

type analyzeResponse struct {
	DetailedAppearance string `json:"detailed_appearance"`
}

// checkAnalysisProvider enforces that only the OpenAI vendor handles image
// analysis, matching the capability split of the upstream APIs.
func (a *App) checkAnalysisProvider(w http.ResponseWriter, r *http.Request, provider string) bool {
	normalized, err := openai.NormalizeProvider(provider)
	if err != nil {
		a.fail(w, r, err, "unsupported provider")
		return false
	}
	if normalized != openai.ProviderOpenAI {
		a.fail(w, r, fmt.Errorf("%w: provider %q does not support image analysis", domain.ErrUnsupportedProvider, normalized), "unsupported provider")
		return false
	}
	if a.Analyzer == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "image analysis is not configured")
		return false
	}
	return true
}

func (a *App) AnalyzeImageURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if !a.decode(w, r, &req) {
		return
	}
	if !a.checkAnalysisProvider(w, r, req.Provider) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url is required")
		return
	}

	result, err := a.Analyzer.AnalyzeURL(r.Context(), req.ImageURL, req.VisionModel)
	if err != nil {
		a.fail(w, r, err, "image analysis failed")
		return
	}
	a.json(w, http.StatusOK, analyzeResponse{DetailedAppearance: result})
}

func (a *App) AnalyzeImageBase64(w http.ResponseWriter, r *http.Request) {
	var req analyzeBase64Request
	if !a.decode(w, r, &req) {
		return
	}
	if !a.checkAnalysisProvider(w, r, req.Provider) {
		return
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_base64 is required")
		return
	}

	result, err := a.Analyzer.AnalyzeBase64(r.Context(), req.ImageBase64, req.VisionModel)
	if err != nil {
		a.fail(w, r, err, "image analysis failed")
		return
	}
	a.json(w, http.StatusOK, analyzeResponse{DetailedAppearance: result})
}
