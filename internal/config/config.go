package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the service configuration, populated from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// Defaults applied when an optimize request omits a parameter.
		Step           float64 `env:"OPT_STEP" envDefault:"0.1"`
		NoImproveThr   float64 `env:"OPT_NO_IMPROVE_THR" envDefault:"1e-5"`
		NoImproveBreak int     `env:"OPT_NO_IMPROVE_BREAK" envDefault:"10"`
		MaxIterations  int     `env:"OPT_MAX_ITERATIONS" envDefault:"100"`
		Alpha          float64 `env:"OPT_ALPHA" envDefault:"1.0"`
		Gamma          float64 `env:"OPT_GAMMA" envDefault:"2.0"`
		Rho            float64 `env:"OPT_RHO" envDefault:"0.5"`
		Sigma          float64 `env:"OPT_SIGMA" envDefault:"0.5"`
	}
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development runs default to debug logging unless explicitly set.
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
