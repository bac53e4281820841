package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appNameVar         = "TASKFLOW_APP_NAME"
	apiBaseURLVar      = "TASKFLOW_API_URL"
	socketURLVar       = "TASKFLOW_SOCKET_URL"
	logLevelVar        = "TASKFLOW_LOG_LEVEL"
	keyringServiceVar  = "TASKFLOW_KEYRING_SERVICE"
	credentialsFileVar = "TASKFLOW_CREDENTIALS_FILE"
	requestTimeoutVar  = "TASKFLOW_REQUEST_TIMEOUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "TaskFlow")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:3000")
}

func (EnvVars) GetSocketURL() string {
	return GetEnv(socketURLVar, "ws://localhost:3000/ws")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetKeyringService() string {
	return GetEnv(keyringServiceVar, "taskflow")
}

func (EnvVars) GetCredentialsFile() string {
	if value := os.Getenv(credentialsFileVar); value != "" {
		return value
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskflow/credentials"
	}
	return filepath.Join(home, ".taskflow", "credentials")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	raw := GetEnv(requestTimeoutVar, "")
	if raw == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
