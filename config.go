package tripwise

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	DefaultAPIVersion    = "2024-05-01-preview"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultMaxToolRounds = 8
	DefaultStatsPath     = "data/stats.json"
	DefaultPromptsDir    = "prompts"
	DefaultSQLitePath    = "exchanges.sqlite"
)

// Config holds everything the service reads from the environment at startup.
type Config struct {
	Addr string

	LLMProvider string

	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	APIVersion      string

	GeminiAPIKey string
	GeminiModel  string

	// An empty ScoringURI switches predictions to the local mock.
	ScoringURI        string
	ScoringAPIKey     string
	ScoringDeployment string

	StatsPath     string
	PromptsDir    string
	MaxToolRounds int

	// Origins allowed to open the chat websocket. Empty means same-origin only.
	AllowedOrigins []string

	StoreType     string
	StoreDSN      string
	Retention     time.Duration
	PruneSchedule string
}

// NewConfig creates a configuration with default values
func NewConfig() *Config {
	return &Config{
		Addr:          ":8000",
		LLMProvider:   ProviderAzure,
		APIVersion:    DefaultAPIVersion,
		GeminiModel:   DefaultGeminiModel,
		StatsPath:     DefaultStatsPath,
		PromptsDir:    DefaultPromptsDir,
		MaxToolRounds: DefaultMaxToolRounds,
		StoreType:     "none",
		Retention:     30 * 24 * time.Hour,
		PruneSchedule: "@daily",
	}
}

// LoadConfig reads .env (if present) and the process environment on top of the defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	c := NewConfig().
		WithScoring(env("AML_SCORING_URI"), env("AML_API_KEY"), env("AML_DEPLOYMENT")).
		WithStatsPath(envOr("STATS_PATH", DefaultStatsPath)).
		WithPromptsDir(envOr("PROMPTS_DIR", DefaultPromptsDir)).
		WithAllowedOrigins(splitList(env("ALLOWED_ORIGINS")))

	if port := env("PORT"); port != "" {
		c.Addr = ":" + port
	}
	c.LLMProvider = envOr("LLM_PROVIDER", c.LLMProvider)
	c.AzureEndpoint = env("AZURE_OPENAI_ENDPOINT")
	c.AzureAPIKey = env("AZURE_OPENAI_API_KEY")
	c.AzureDeployment = env("AZURE_OPENAI_DEPLOYMENT")
	c.APIVersion = envOr("OPENAI_API_VERSION", c.APIVersion)
	c.GeminiAPIKey = env("GEMINI_API_KEY")
	c.GeminiModel = envOr("GEMINI_MODEL", c.GeminiModel)
	c.PruneSchedule = envOr("PRUNE_SCHEDULE", c.PruneSchedule)

	switch storeType := envOr("STORE_TYPE", c.StoreType); storeType {
	case "sqlite":
		c.WithSQLiteStore(envOr("STORE_DSN", DefaultSQLitePath))
	case "postgres":
		c.WithPostgresStore(env("STORE_DSN"))
	default:
		c.StoreType = storeType
	}

	if v := env("MAX_TOOL_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_TOOL_ROUNDS %q", v)
		}
		c.WithMaxToolRounds(n)
	}
	if v := env("EXCHANGE_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EXCHANGE_RETENTION %q: %w", v, err)
		}
		c.Retention = d
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the selected LLM provider has what it needs.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderAzure:
		var missing []string
		if c.AzureEndpoint == "" {
			missing = append(missing, "AZURE_OPENAI_ENDPOINT")
		}
		if c.AzureAPIKey == "" {
			missing = append(missing, "AZURE_OPENAI_API_KEY")
		}
		if c.AzureDeployment == "" {
			missing = append(missing, "AZURE_OPENAI_DEPLOYMENT")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing azure openai configuration: %s", strings.Join(missing, ", "))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing gemini configuration: GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLMProvider)
	}

	switch c.StoreType {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported STORE_TYPE: %s", c.StoreType)
	}
	if c.StoreType == "postgres" && c.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is required for the postgres store")
	}
	return nil
}

// MockScoring reports whether predictions are computed locally.
func (c *Config) MockScoring() bool {
	return c.ScoringURI == ""
}

// WithScoring sets the remote scoring endpoint for the configuration
func (c *Config) WithScoring(uri, apiKey, deployment string) *Config {
	c.ScoringURI = uri
	c.ScoringAPIKey = apiKey
	c.ScoringDeployment = deployment
	return c
}

// WithStatsPath sets the stats file for the configuration
func (c *Config) WithStatsPath(path string) *Config {
	c.StatsPath = path
	return c
}

// WithPromptsDir sets the directory holding system.md and developer.md
func (c *Config) WithPromptsDir(dir string) *Config {
	c.PromptsDir = dir
	return c
}

// WithMaxToolRounds caps the number of tool-calling rounds per request
func (c *Config) WithMaxToolRounds(n int) *Config {
	c.MaxToolRounds = n
	return c
}

// WithSQLiteStore records exchanges in a SQLite database at dbPath
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	c.StoreType = "sqlite"
	c.StoreDSN = dbPath
	return c
}

// WithPostgresStore records exchanges in PostgreSQL
func (c *Config) WithPostgresStore(dsn string) *Config {
	c.StoreType = "postgres"
	c.StoreDSN = dsn
	return c
}

// WithAllowedOrigins sets the origins accepted by the websocket endpoint ("*" allows any)
func (c *Config) WithAllowedOrigins(origins []string) *Config {
	c.AllowedOrigins = origins
	return c
}

// Prompts are the fixed instructions seeded into every conversation.
type Prompts struct {
	System    string
	Developer string
}

// LoadPrompts reads system.md and developer.md from dir. Called once at startup.
func LoadPrompts(dir string) (Prompts, error) {
	system, err := os.ReadFile(filepath.Join(dir, "system.md"))
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read system prompt: %w", err)
	}
	developer, err := os.ReadFile(filepath.Join(dir, "developer.md"))
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read developer prompt: %w", err)
	}
	return Prompts{System: string(system), Developer: string(developer)}, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}
