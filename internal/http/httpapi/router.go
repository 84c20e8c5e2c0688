package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"storybook/internal/http/handlers"
	"storybook/internal/middleware"
)

// Options tunes the middleware chain.
type Options struct {
	RateLimitPerMin int
	AllowedOrigins  []string
	DefaultLanguage string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Language(opts.DefaultLanguage, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/stories", func(r chi.Router) {
		r.Post("/generate", app.StoriesGenerate)
	})

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/generate", app.ImagesGenerate)
		r.Post("/analyze-url", app.AnalyzeImageURL)
		r.Post("/analyze-base64", app.AnalyzeImageBase64)
	})

	r.Route("/v1/comics", func(r chi.Router) {
		r.Get("/", app.ComicsList)
		r.Get("/{comicID}", app.ComicsGet)
		r.Get("/{comicID}/export", app.ComicsExport)
	})

	return r
}
