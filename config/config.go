package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort             = "8080"
	defaultModelProvider    = "local"
	defaultModelDimension   = 128
	defaultUploadMaxSizeMB  = 64
	defaultUploadWorkers    = 4
	defaultSearchLimit      = 20
	defaultVectorCandidates = 20
)

type Config struct {
	config *viper.Viper
}

// Load reads config/config.<env>.yaml from the project root. Environment
// variables always take precedence over values from the file.
func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetPort() string {
	port := c.getString("PORT", "server.port")
	if len(port) == 0 {
		port = defaultPort
	}

	return port
}

// GetServerURL is the base URL the console uses to reach the server.
func (c *Config) GetServerURL() string {
	serverURL := c.getString("SERVER_URL", "console.server_url")
	if len(serverURL) == 0 {
		serverURL = "http://localhost:" + c.GetPort()
	}

	return serverURL
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level")
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path")
}

func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "database.index_path")
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path")
}

// GetModelProvider names the embedding runtime: "local" or "openai".
func (c *Config) GetModelProvider() string {
	provider := c.getString("MODEL_PROVIDER", "model.provider")
	if len(provider) == 0 {
		provider = defaultModelProvider
	}

	return provider
}

func (c *Config) GetModelPath() string {
	return c.getString("MODEL_PATH", "model.path")
}

func (c *Config) GetModelName() string {
	return c.getString("MODEL_NAME", "model.name")
}

func (c *Config) GetModelBaseURL() string {
	return c.getString("MODEL_BASE_URL", "model.base_url")
}

func (c *Config) GetModelAPIKey() string {
	return c.getString("MODEL_API_KEY", "model.api_key")
}

func (c *Config) GetModelDimension() int {
	return c.getInt("MODEL_DIMENSION", "model.dimension", defaultModelDimension)
}

func (c *Config) GetUploadMaxSizeMB() int {
	return c.getInt("UPLOAD_MAX_SIZE_MB", "upload.max_size_mb", defaultUploadMaxSizeMB)
}

func (c *Config) GetUploadWorkers() int {
	return c.getInt("UPLOAD_WORKERS", "upload.workers", defaultUploadWorkers)
}

func (c *Config) GetSearchLimit() int {
	return c.getInt("SEARCH_LIMIT", "search.limit", defaultSearchLimit)
}

func (c *Config) GetVectorCandidates() int {
	return c.getInt("SEARCH_VECTOR_CANDIDATES", "search.vector_candidates", defaultVectorCandidates)
}

func (c *Config) getString(envKey string, fileKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}

	return value
}

func (c *Config) getInt(envKey string, fileKey string, fallback int) int {
	value := c.config.GetInt(envKey)
	if value <= 0 {
		value = c.config.GetInt(fileKey)
	}
	if value <= 0 {
		value = fallback
	}

	return value
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
