package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process configuration read from the environment
type Config struct {
	ListenAddr      string        `env:"SAAS_LISTEN_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"SAAS_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"SAAS_LOG_FORMAT" envDefault:"json"`
	ResourcesDir    string        `env:"SAAS_RESOURCES_DIR" envDefault:"resources"`
	ModelsConfig    string        `env:"SAAS_MODELS_CONFIG" envDefault:"config/models.yaml"`
	AnalysisTimeout time.Duration `env:"SAAS_ANALYSIS_TIMEOUT" envDefault:"20s"`
	RequestTimeout  time.Duration `env:"SAAS_REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SAAS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.AnalysisTimeout <= 0 {
		return Config{}, fmt.Errorf("SAAS_ANALYSIS_TIMEOUT must be positive, got %s", cfg.AnalysisTimeout)
	}
	return cfg, nil
}
