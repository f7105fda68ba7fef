package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSecretsPath is the well-known location of the API key file.
const DefaultSecretsPath = ".secrets/secrets.toml"

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	Prompt PromptConfig
	Parser ParserConfig
	Upload UploadConfig
}

type ServerConfig struct {
	Port string `validate:"required"`
	Env  string `validate:"oneof=development production test"`
}

type LLMConfig struct {
	Provider          string        `validate:"oneof=gemini openai"`
	APIKey            string        `validate:"-"`
	Model             string        `validate:"required"`
	BaseURL           string        `validate:"omitempty,url"`
	Temperature       float32       `validate:"gte=0,lte=2"`
	MaxOutputTokens   int32         `validate:"gt=0"`
	Timeout           time.Duration `validate:"gt=0"`
	MaxAttempts       int           `validate:"gte=1"`
	RetryInitialDelay time.Duration `validate:"gte=0"`

	// SecretsPath is where APIKey was looked up; kept for setup messages.
	SecretsPath string `validate:"-"`
}

type PromptConfig struct {
	MaxChars   int `validate:"gt=0"`
	FloorChars int `validate:"gte=0,ltfield=MaxChars"`
}

type ParserConfig struct {
	Strict bool
}

type UploadConfig struct {
	MaxFileSize int64 `validate:"gt=0"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini))
	secretsPath := getEnv("SECRETS_PATH", DefaultSecretsPath)

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		LLM: LLMConfig{
			Provider:          provider,
			APIKey:            lookupAPIKey(secretsPath, provider),
			Model:             getEnv("LLM_MODEL", defaultModel(provider)),
			BaseURL:           getEnv("LLM_BASE_URL", ""),
			Temperature:       getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			MaxOutputTokens:   int32(getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 4096)),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", "60s"),
			MaxAttempts:       getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
			SecretsPath:       secretsPath,
		},
		Prompt: PromptConfig{
			MaxChars:   getEnvAsInt("PROMPT_MAX_CHARS", 60000),
			FloorChars: getEnvAsInt("PROMPT_FLOOR_CHARS", 2000),
		},
		Parser: ParserConfig{
			Strict: getEnvAsBool("PARSER_STRICT", false),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
	}
}

// Validate checks the loaded values. A missing API key is not a validation
// failure: the server still starts and reports it per request.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// lookupAPIKey reads the key from the secrets file first, then from the
// environment. The file may hold either api_key or google_api_key.
func lookupAPIKey(secretsPath, provider string) string {
	v := viper.New()
	v.SetConfigFile(secretsPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				log.Printf("Could not read secrets file %s: %v", secretsPath, err)
			}
		}
	} else {
		for _, key := range []string{"api_key", provider + "_api_key", "google_api_key"} {
			if value := strings.TrimSpace(v.GetString(key)); value != "" {
				return value
			}
		}
	}

	envKeys := []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	if provider == ProviderOpenAI {
		envKeys = []string{"OPENAI_API_KEY"}
	}
	for _, key := range envKeys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.5-flash"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
