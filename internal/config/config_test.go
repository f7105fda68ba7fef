package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecrets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRETS_PATH", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.False(t, cfg.Parser.Strict)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_APIKeyLookup(t *testing.T) {
	tests := []struct {
		name    string
		secrets string
		env     string
		want    string
	}{
		{"api_key in secrets file", `api_key = "from-file"`, "", "from-file"},
		{"google_api_key in secrets file", `google_api_key = "legacy"`, "", "legacy"},
		{"secrets file wins over env", `api_key = "from-file"`, "from-env", "from-file"},
		{"env fallback", `other = "x"`, "from-env", "from-env"},
		{"nothing configured", ``, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SECRETS_PATH", writeSecrets(t, tt.secrets))
			t.Setenv("GEMINI_API_KEY", tt.env)
			t.Setenv("GOOGLE_API_KEY", "")

			cfg := Load()
			assert.Equal(t, tt.want, cfg.LLM.APIKey)
		})
	}
}

func TestLoad_OpenAIProvider(t *testing.T) {
	t.Setenv("SECRETS_PATH", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv("SECRETS_PATH", filepath.Join(t.TempDir(), "missing.toml"))

	t.Run("unknown provider", func(t *testing.T) {
		cfg := Load()
		cfg.LLM.Provider = "llama"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Provider")
	})

	t.Run("floor above budget", func(t *testing.T) {
		cfg := Load()
		cfg.Prompt.FloorChars = cfg.Prompt.MaxChars + 1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := Load()
		cfg.LLM.Timeout = 0
		assert.Error(t, cfg.Validate())
	})
}
