// Package config reads client configuration from environment variables,
// with defaults suitable for a local development server.
package config

import "time"

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetSocketURL() string
	GetLogLevel() string
	GetKeyringService() string
	GetCredentialsFile() string
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
