package config

import "go.uber.org/fx"

// NewSessionConfigProvider extracts the coordinator settings.
func NewSessionConfigProvider(cfg *Config) *SessionConfig {
	return &cfg.Lighter.Session
}

// Module provides the sections of the supplied *Config. The *Config itself is loaded before the
// container is built because it selects which modules are installed.
var Module = fx.Options(
	fx.Provide(NewSessionConfigProvider),
)
