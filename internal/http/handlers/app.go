package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"storybook/internal/domain"
	"storybook/internal/infra"
	"storybook/internal/providers/image"
	"storybook/internal/providers/vision"
	"storybook/internal/storage"
	"storybook/internal/story"
)

// App is the dependency container shared by all handlers. Comics and Store
// may be nil when persistence is not configured; the affected endpoints then
// answer 503.
type App struct {
	Config         *infra.Config
	Logger         infra.Logger
	Story          story.Generator
	ImageProviders map[string]image.Generator
	Analyzer       vision.Analyzer
	Comics         domain.ComicRepository
	Store          *storage.FileStore
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// fail maps domain sentinel errors onto HTTP statuses and logs the cause.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnsupportedProvider):
		a.error(w, http.StatusBadRequest, "unsupported_provider", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", fallbackMessage)
	case errors.Is(err, domain.ErrContentRejected):
		a.error(w, http.StatusUnprocessableEntity, "content_rejected", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("provider failure")
		a.error(w, http.StatusBadGateway, "provider_failure", fallbackMessage)
	case errors.Is(err, domain.ErrNoPersistence):
		a.error(w, http.StatusServiceUnavailable, "no_persistence", "persistence is not configured")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		a.error(w, http.StatusInternalServerError, "internal", fallbackMessage)
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}
