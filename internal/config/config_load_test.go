package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("pdf-clerk", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "")
	dir := t.TempDir()

	cfg, err := Load(newFlagSet(t, "--archive", dir))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, dir, cfg.Archive.BasePath)
	assert.Equal(t, filepath.Join(dir, DefaultIndexDatabaseName), cfg.Archive.IndexPath)
	assert.Equal(t, filepath.Join(dir, "tbd"), cfg.Archive.PendingPath())
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.Equal(t, []string{"chi_sim", "eng"}, cfg.Extraction.PDFLanguages)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CLERK_LOG_LEVEL", "warn")
	t.Setenv("CLERK_MANAGER", "张三")

	cfg, err := Load(newFlagSet(t, "--log-level", "debug"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flag wins over env")
	assert.Equal(t, "张三", cfg.Expense.ProjectManager, "env wins over default")
}

func TestLoad_APIKeyFallback(t *testing.T) {
	t.Setenv("CLERK_API_KEY", "")
	t.Setenv("SILICONFLOW_API_KEY", "sf-key")

	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, "sf-key", cfg.LLM.APIKey)

	cfg, err = Load(newFlagSet(t, "--api-key", "explicit"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoad_GeminiProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(newFlagSet(t, "--provider", "Gemini"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, DefaultGeminiModel, cfg.LLM.Model)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)

	cfg, err = Load(newFlagSet(t, "--provider", "gemini", "--model", "gemini-2.0-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-pro", cfg.LLM.Model)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clerk.yaml")
	content := "department: 计算机学院\nmax-pages: 3\nreview-limit: 50000\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := Load(newFlagSet(t, "--config", file))
	require.NoError(t, err)

	assert.Equal(t, "计算机学院", cfg.Procurement.Department)
	assert.Equal(t, 3, cfg.LLM.MaxPages)
	assert.Equal(t, 50000.0, cfg.Expense.ReviewLimit)
	assert.Equal(t, file, cfg.ConfigFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad log level", []string{"--log-level", "loud"}},
		{"bad provider", []string{"--provider", "bard"}},
		{"zero dpi", []string{"--dpi", "0"}},
		{"missing config file", []string{"--config", "/nonexistent/clerk.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlagSet(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestLoad_NilFlagSet(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPendingFolder, cfg.Archive.PendingFolder)
}
