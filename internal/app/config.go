package app

import (
	"fmt"
	"time"

	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
	"github.com/launchsignal/validator-backend/internal/platform/envutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string

	JWTSecret string
	JWTIssuer string

	// RunServer / RunWorker split the process roles: a single-process deploy
	// runs both, a scaled deploy runs API and worker fleets separately with
	// the Redis bus bridging SSE events.
	RunServer bool
	RunWorker bool

	ScorerStagger time.Duration
	CallTimeout   time.Duration

	Scoring aggregate.Config
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		ServiceName:   envutil.String("SERVICE_NAME", "validator-backend"),
		Environment:   envutil.String("ENVIRONMENT", "development"),
		Version:       envutil.String("SERVICE_VERSION", "dev"),
		Port:          envutil.String("PORT", "8080"),
		JWTSecret:     envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:     envutil.String("JWT_ISSUER", ""),
		RunServer:     envutil.Bool("RUN_SERVER", true),
		RunWorker:     envutil.Bool("RUN_WORKER", true),
		ScorerStagger: time.Duration(envutil.Int("SCORER_STAGGER_MS", 150)) * time.Millisecond,
		CallTimeout:   time.Duration(envutil.Int("SCORER_CALL_TIMEOUT_SECONDS", 90)) * time.Second,
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !cfg.RunServer && !cfg.RunWorker {
		return cfg, fmt.Errorf("at least one of RUN_SERVER / RUN_WORKER must be enabled")
	}

	scoring, err := aggregate.Load(envutil.String("SCORING_CONFIG_PATH", ""))
	if err != nil {
		return cfg, fmt.Errorf("load scoring config: %w", err)
	}
	cfg.Scoring = scoring

	log.Info("config loaded",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
		"run_server", cfg.RunServer,
		"run_worker", cfg.RunWorker,
	)
	return cfg, nil
}
