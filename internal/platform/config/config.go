package config

import (
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	ContentDir  string
	HTTP        HTTPConfig
}

// IsProduction reports whether APP_ENV selects the production profile.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		Env:         strings.TrimSpace(os.Getenv("APP_ENV")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		ContentDir:  strings.TrimSpace(os.Getenv("CONTENT_DIR")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "recipe-blog"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ContentDir == "" {
		cfg.ContentDir = "./content/posts"
	}
	return cfg, nil
}
