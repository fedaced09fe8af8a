package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `env:"CP_TEST_NAME" default:"droply"`
	Port    int32         `env:"CP_TEST_PORT" default:"3000"`
	Ratio   float64       `env:"CP_TEST_RATIO" default:"0.5"`
	Debug   bool          `env:"CP_TEST_DEBUG" default:"false"`
	Timeout time.Duration `env:"CP_TEST_TIMEOUT" default:"10s"`

	Nested struct {
		Host string `env:"CP_TEST_NESTED_HOST" default:"localhost"`
	}
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, "droply", cfg.Name)
	assert.Equal(t, int32(3000), cfg.Port)
	assert.InDelta(t, 0.5, cfg.Ratio, 1e-9)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "localhost", cfg.Nested.Host)
}

func TestParseEnv_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CP_TEST_PORT", "8080")
	t.Setenv("CP_TEST_TIMEOUT", "1m")
	t.Setenv("CP_TEST_NESTED_HOST", "db")

	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, int32(8080), cfg.Port)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, "db", cfg.Nested.Host)
}

func TestParseEnv_InvalidValue(t *testing.T) {
	t.Setenv("CP_TEST_PORT", "not-a-number")

	var cfg testConfig
	assert.Error(t, ParseEnv(&cfg))
}

func TestParseEnv_RequiresPointer(t *testing.T) {
	assert.ErrorIs(t, ParseEnv(testConfig{}), ErrNotStructPointer)
}

func TestLoadAndParseYaml_FileBetweenEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "cp_test:\n  port: 5433\n  timeout: 2s\n  nested:\n    host: ${CP_TEST_UNSET_VAR:-yaml-host}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CP_TEST_TIMEOUT", "1m")

	var cfg testConfig
	require.NoError(t, LoadAndParseYaml(path, &cfg))

	assert.Equal(t, int32(5433), cfg.Port, "file overrides default")
	assert.Equal(t, time.Minute, cfg.Timeout, "env overrides file")
	assert.Equal(t, "yaml-host", cfg.Nested.Host)
	assert.Equal(t, "droply", cfg.Name)
}

func TestLoadAndParseYaml_MissingFileKeepsDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, LoadAndParseYaml(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))

	assert.Equal(t, int32(3000), cfg.Port)
	assert.Equal(t, "localhost", cfg.Nested.Host)
}

func TestParseEnv_Required(t *testing.T) {
	var cfg struct {
		Secret string `env:"CP_TEST_REQUIRED_SECRET" required:"true"`
	}
	assert.ErrorIs(t, ParseEnv(&cfg), ErrRequired)

	t.Setenv("CP_TEST_REQUIRED_SECRET", "s3cret")
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, "s3cret", cfg.Secret)
}
