// Package config содержит логику чтения конфигурации сервиса оценки заказов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress        = "localhost:8080"
	defaultBackendAddress    = "localhost:8081"
	defaultReconcileInterval = 10 * time.Second
)

// Config содержит параметры конфигурации сервиса оценки заказов.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	BackendAddress    string        `env:"BACKEND_ADDRESS"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	BackendToken      string        `env:"BACKEND_TOKEN"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the estimate store")
	flag.StringVar(&cfg.BackendAddress, "b", defaultBackendAddress, "marketplace backend address")
	flag.StringVar(&cfg.SessionSecret, "s", "", "secret for signing session cookies")
	flag.StringVar(&cfg.BackendToken, "t", "", "backend service token for estimate reconciliation")
	flag.DurationVar(&cfg.ReconcileInterval, "i", defaultReconcileInterval, "estimate reconciliation interval")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.BackendAddress != "" {
		cfg.BackendAddress = envCfg.BackendAddress
	}
	if envCfg.SessionSecret != "" {
		cfg.SessionSecret = envCfg.SessionSecret
	}
	if envCfg.BackendToken != "" {
		cfg.BackendToken = envCfg.BackendToken
	}
	if envCfg.ReconcileInterval != 0 {
		cfg.ReconcileInterval = envCfg.ReconcileInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("reconcile interval must be positive, got %s", cfg.ReconcileInterval)
	}

	return cfg, nil
}
