package bootstrap

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// LoadConfig decodes and validates the configuration held by v.
func LoadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "medgraph"),
		logger.String("version", Version),
	), nil
}
