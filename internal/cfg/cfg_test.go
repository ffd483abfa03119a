package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"crop-advisor/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		common.EnvConfigFile,
		common.EnvPort,
		common.EnvModelPath,
		common.EnvLogLevel,
		common.EnvLogFormat,
		common.EnvReadTimeout,
		common.EnvWriteTimeout,
		common.EnvAllowedOrigins,
		common.EnvTrainingSeed,
		common.EnvMaxDepth,
		common.EnvDatasetPath,
		common.EnvPredictorURL,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults match reference service",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, 8080, settings.Port)
				assert.Equal(t, "crop_prediction_model.db", settings.ModelPath)
				assert.Equal(t, []string{"*"}, settings.AllowedOrigins)
				assert.Equal(t, int64(42), settings.TrainingSeed)
				assert.Equal(t, 0, settings.MaxDepth)
				assert.Equal(t, 10*time.Second, settings.ReadTimeout)
				assert.Equal(t, ":8080", settings.Addr())
			},
		},
		{
			name: "custom values",
			envVars: map[string]string{
				common.EnvPort:           "9090",
				common.EnvModelPath:      "/tmp/model.db",
				common.EnvAllowedOrigins: "https://a.example, https://b.example",
				common.EnvTrainingSeed:   "7",
				common.EnvMaxDepth:       "3",
				common.EnvReadTimeout:    "5s",
				common.EnvLogFormat:      "json",
			},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, 9090, settings.Port)
				assert.Equal(t, "/tmp/model.db", settings.ModelPath)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, settings.AllowedOrigins)
				assert.Equal(t, int64(7), settings.TrainingSeed)
				assert.Equal(t, 3, settings.MaxDepth)
				assert.Equal(t, 5*time.Second, settings.ReadTimeout)
				assert.Equal(t, "json", settings.LogFormat)
			},
		},
		{
			name:    "privileged port rejected",
			envVars: map[string]string{common.EnvPort: "80"},
			wantErr: true,
		},
		{
			name:    "negative depth rejected",
			envVars: map[string]string{common.EnvMaxDepth: "-1"},
			wantErr: true,
		},
		{
			name:    "bad log level rejected",
			envVars: map[string]string{common.EnvLogLevel: "loud"},
			wantErr: true,
		},
		{
			name:    "bad log format rejected",
			envVars: map[string]string{common.EnvLogFormat: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearTestEnv(t)

	configContent := `
server:
  port: 8181
  readTimeout: "3s"
  writeTimeout: "4s"
  allowedOrigins:
    - "https://farm.example"
model:
  path: "models/crop.db"
training:
  seed: 0
  maxDepth: 4
logging:
  level: "debug"
  format: "json"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))
	t.Setenv(common.EnvConfigFile, configPath)

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, settings.Port)
	assert.Equal(t, 3*time.Second, settings.ReadTimeout)
	assert.Equal(t, 4*time.Second, settings.WriteTimeout)
	assert.Equal(t, []string{"https://farm.example"}, settings.AllowedOrigins)
	assert.Equal(t, "models/crop.db", settings.ModelPath)
	assert.Equal(t, int64(0), settings.TrainingSeed, "explicit zero seed must be kept")
	assert.Equal(t, 4, settings.MaxDepth)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, common.DefaultPredictorURL, settings.PredictorURL)
}

func TestLoadFromYAML_EnvOverrides(t *testing.T) {
	clearTestEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("model:\n  path: from-file.db\n"), 0o600))
	t.Setenv(common.EnvConfigFile, configPath)
	t.Setenv(common.EnvModelPath, "from-env.db")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", settings.ModelPath)
	assert.Equal(t, 8080, settings.Port)
	assert.Equal(t, int64(42), settings.TrainingSeed)
}

func TestLoadFromYAML_Errors(t *testing.T) {
	clearTestEnv(t)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(common.EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o600))
		t.Setenv(common.EnvConfigFile, configPath)
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	clearTestEnv(t)
	dir := t.TempDir()

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")), "a missing .env file is not an error")

	// godotenv never overrides a variable that is set, even to "".
	require.NoError(t, os.Unsetenv(common.EnvModelPath))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("MODEL_PATH=dotenv.db\n"), 0o600))
	require.NoError(t, loadDotEnv(envPath))
	assert.Equal(t, "dotenv.db", os.Getenv(common.EnvModelPath))
}
