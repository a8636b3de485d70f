package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	// Key material for verifying ID tokens issued by the identity provider.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Provider credentials. An empty value falls back to Secret Manager
	// when GCP_PROJECT_ID is set; otherwise startup fails.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	LlamaAPIKey  string `envconfig:"LLAMA_API_KEY"`

	ProviderTimeoutSec int `envconfig:"PROVIDER_TIMEOUT_SEC" default:"30"`

	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`

	// Optional Pub/Sub topic for per-turn usage events. Left empty, no
	// events are published.
	UsageEventTopic string `envconfig:"PUBSUB_USAGE_TOPIC"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
