package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"crop-advisor/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port           int
	ModelPath      string
	LogLevel       string
	LogFormat      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	TrainingSeed   int64
	MaxDepth       int
	DatasetPath    string
	PredictorURL   string
}

type ConfigFile struct {
	Server struct {
		Port           int      `yaml:"port"`
		ReadTimeout    string   `yaml:"readTimeout"`
		WriteTimeout   string   `yaml:"writeTimeout"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`

	Training struct {
		Seed        *int64 `yaml:"seed"`
		MaxDepth    int    `yaml:"maxDepth"`
		DatasetPath string `yaml:"datasetPath"`
	} `yaml:"training"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Client struct {
		PredictorURL string `yaml:"predictorURL"`
	} `yaml:"client"`
}

// Load reads settings from the YAML file named by CONFIG_FILE, or from the
// environment when it is unset. A .env file in the working directory is
// applied first without overriding variables that are already set.
func Load() (Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Server.ReadTimeout)
	if err != nil {
		readTimeout = 10 * time.Second
	}

	writeTimeout, err := time.ParseDuration(config.Server.WriteTimeout)
	if err != nil {
		writeTimeout = 10 * time.Second
	}

	seed := int64(common.DefaultTrainingSeed)
	if config.Training.Seed != nil {
		seed = *config.Training.Seed
	}

	origins := config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	settings := Settings{
		Port:           getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, orDefault(config.Model.Path, common.DefaultModelPath)),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
		ReadTimeout:    getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:   getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
		AllowedOrigins: splitOrDefault(os.Getenv(common.EnvAllowedOrigins), origins),
		TrainingSeed:   getInt64OrDefault(common.EnvTrainingSeed, seed),
		MaxDepth:       getIntFromEnvOrConfig(common.EnvMaxDepth, config.Training.MaxDepth, 0),
		DatasetPath:    getEnvOrDefault(common.EnvDatasetPath, config.Training.DatasetPath),
		PredictorURL:   getEnvOrDefault(common.EnvPredictorURL, orDefault(config.Client.PredictorURL, common.DefaultPredictorURL)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:           getIntOrDefault(common.EnvPort, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		ReadTimeout:    getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:   getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		AllowedOrigins: splitOrDefault(os.Getenv(common.EnvAllowedOrigins), []string{"*"}),
		TrainingSeed:   getInt64OrDefault(common.EnvTrainingSeed, common.DefaultTrainingSeed),
		MaxDepth:       getIntOrDefault(common.EnvMaxDepth, 0),
		DatasetPath:    os.Getenv(common.EnvDatasetPath), // optional, embedded dataset otherwise
		PredictorURL:   getEnvOrDefault(common.EnvPredictorURL, common.DefaultPredictorURL),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the listen address for the predictor service.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// validateSettings checks ranges and required values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 1m, got %v", settings.WriteTimeout)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}
	switch strings.ToLower(settings.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	if len(settings.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if settings.MaxDepth < 0 {
		return fmt.Errorf("max depth cannot be negative, got %d", settings.MaxDepth)
	}

	if settings.PredictorURL == "" {
		return fmt.Errorf("predictor URL cannot be empty")
	}

	return nil
}
