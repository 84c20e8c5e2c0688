package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storybook/internal/adapter/repo"
	"storybook/internal/domain"
	"storybook/internal/http/handlers"
	httpapi "storybook/internal/http/httpapi"
	"storybook/internal/infra"
	"storybook/internal/infra/geoip"
	"storybook/internal/middleware"
	imageprovider "storybook/internal/providers/image"
	"storybook/internal/providers/openai"
	"storybook/internal/providers/vision"
	"storybook/internal/storage"
	"storybook/internal/story"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Persistence is optional; without DATABASE_URL the service still
	// generates stories and images but skips comic storage.
	var comics domain.ComicRepository
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		comics = repo.NewComicRepository(dbpool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, comic persistence disabled")
	}

	var openaiClient *openai.Client
	if cfg.OpenAIAPIKey != "" {
		openaiClient, err = openai.New(openai.Options{
			Provider:     openai.ProviderOpenAI,
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			RPS:          cfg.ProviderRPS,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure openai client")
		}
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, using static story fallback")
	}

	var azureClient *openai.Client
	if cfg.HasAzure() {
		azureClient, err = openai.New(openai.Options{
			Provider:   openai.ProviderAzure,
			APIKey:     cfg.AzureAPIKey,
			BaseURL:    cfg.AzureEndpoint,
			APIVersion: cfg.AzureAPIVersion,
			RPS:        cfg.ProviderRPS,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure azure client")
		}
	}

	storyGen := story.NewBuilder(story.Options{
		Client:      openaiClient,
		TextModel:   cfg.OpenAITextModel,
		DetailModel: cfg.OpenAIVisionModel,
		Fallback:    story.NewStaticGenerator(),
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("story fallback engaged")
		},
	})

	imageProviders := map[string]imageprovider.Generator{}
	onImageWarning := func(reason, detail string) {
		logger.Warn().Str("reason", reason).Str("detail", detail).Msg("image model adjusted")
	}
	if openaiClient != nil {
		gen, err := imageprovider.NewOpenAIGenerator(imageprovider.Options{
			Client:    openaiClient,
			Model:     cfg.OpenAIImageModel,
			OnWarning: onImageWarning,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure openai image generator")
		}
		imageProviders[openai.ProviderOpenAI] = gen
	}
	if azureClient != nil {
		gen, err := imageprovider.NewOpenAIGenerator(imageprovider.Options{
			Client:    azureClient,
			Model:     cfg.OpenAIImageModel,
			OnWarning: onImageWarning,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure azure image generator")
		}
		imageProviders[openai.ProviderAzure] = gen
	}

	var analyzer vision.Analyzer
	if openaiClient != nil {
		analyzer, err = vision.NewOpenAIAnalyzer(vision.Options{
			Client: openaiClient,
			Model:  cfg.OpenAIVisionModel,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure vision analyzer")
		}
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize file storage")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, language falls back to headers")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Config:         cfg,
		Logger:         logger,
		Story:          storyGen,
		ImageProviders: imageProviders,
		Analyzer:       analyzer,
		Comics:         comics,
		Store:          store,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  []string{"*"},
		DefaultLanguage: middleware.DefaultLanguage,
		CountryLookup:   countryLookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
