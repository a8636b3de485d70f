package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/provider"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. Resolve provider credentials and build the model registry
	providerTimeout := time.Duration(cfg.ProviderTimeoutSec) * time.Second
	registry, err := buildRegistry(context.Background(), cfg, providerTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Strs("models", registry.Tags()).Msg("Model registry initialized")

	// 4. Optional Pub/Sub publisher for usage events
	var publisher pubsub.Publisher
	if cfg.UsageEventTopic != "" {
		p, err := pubsub.NewPublisher(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = p
		logger.Info().Str("topic", cfg.UsageEventTopic).Msg("Usage event publishing enabled")
	}

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	conversationRepo := repository.NewConversationRepo(pool)
	configRepo := repository.NewConfigRepo(pool)

	userSvc := service.NewUserService(userRepo, usageRepo, logger)
	quotaSvc := service.NewQuotaService(usageRepo, configRepo, logger)
	promptSvc := service.NewPromptService(configRepo, logger)
	conversationSvc := service.NewConversationService(conversationRepo, logger)
	chatSvc := service.NewChatService(quotaSvc, promptSvc, conversationSvc, registry, publisher, cfg.UsageEventTopic, logger)

	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	conversationHandler := handler.NewConversationHandler(conversationSvc, validate, logger)
	messageHandler := handler.NewMessageHandler(chatSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(userSvc, conversationSvc, quotaSvc, promptSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, userSvc, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware.Handle)
	conversationHandler.RegisterRoutes(apiV1Mux, authMiddleware.Handle)
	messageHandler.RegisterRoutes(apiV1Mux, authMiddleware.Handle)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware.Handle, middleware.RequireAdmin)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), pool, nil
}

// buildRegistry constructs one client per supported model tag. Each key is
// taken from the environment, falling back to Secret Manager when a GCP
// project is configured. A model with no resolvable key fails startup.
func buildRegistry(ctx context.Context, cfg *config.Config, timeout time.Duration, logger zerolog.Logger) (*provider.Registry, error) {
	var secrets service.SecretManagerService
	if cfg.GCPProjectID != "" {
		s, err := service.NewSecretManagerService(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable, using environment keys only")
		} else {
			secrets = s
			defer secrets.Close()
		}
	}

	resolveKey := func(envValue, providerName string) (string, error) {
		if envValue != "" {
			return envValue, nil
		}
		if secrets == nil {
			return "", nil
		}
		return secrets.GetProviderAPIKey(ctx, providerName)
	}

	registry := provider.NewRegistry()

	openAIKey, err := resolveKey(cfg.OpenAIAPIKey, "openai")
	if err != nil {
		return nil, err
	}
	openAI, err := provider.NewOpenAIClient(openAIKey, timeout)
	if err != nil {
		return nil, err
	}
	registry.Register(model.ModelChatGPT, openAI)

	geminiKey, err := resolveKey(cfg.GeminiAPIKey, "gemini")
	if err != nil {
		return nil, err
	}
	gemini, err := provider.NewGeminiClient(geminiKey, timeout)
	if err != nil {
		return nil, err
	}
	registry.Register(model.ModelGemini, gemini)

	llamaKey, err := resolveKey(cfg.LlamaAPIKey, "groq")
	if err != nil {
		return nil, err
	}
	groq, err := provider.NewGroqClient(llamaKey, timeout)
	if err != nil {
		return nil, err
	}
	registry.Register(model.ModelLlama, groq)

	return registry, nil
}
