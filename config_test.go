package tripwise

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.Addr != ":8000" || c.MaxToolRounds != DefaultMaxToolRounds || c.APIVersion != DefaultAPIVersion {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if !c.MockScoring() {
		t.Error("expected mock scoring without a scoring URI")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("LLM_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")
	t.Setenv("AML_SCORING_URI", "https://aml.example/score")
	t.Setenv("MAX_TOOL_ROUNDS", "3")
	t.Setenv("EXCHANGE_RETENTION", "24h")
	t.Setenv("STORE_TYPE", "sqlite")
	t.Setenv("STORE_DSN", "")
	t.Setenv("STATS_PATH", "")
	t.Setenv("PROMPTS_DIR", "")

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":9001" || c.MaxToolRounds != 3 || c.Retention != 24*time.Hour {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.MockScoring() {
		t.Error("expected remote scoring")
	}
	if c.StoreType != "sqlite" || c.StoreDSN != DefaultSQLitePath {
		t.Errorf("expected default sqlite store, got %s %q", c.StoreType, c.StoreDSN)
	}
	if c.StatsPath != DefaultStatsPath || c.PromptsDir != DefaultPromptsDir {
		t.Errorf("unexpected paths: %q %q", c.StatsPath, c.PromptsDir)
	}
}

func TestLoadConfigStoreAndOrigins(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STATS_PATH", "/srv/stats.json")

	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("STORE_DSN", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for postgres without STORE_DSN")
	}

	t.Setenv("STORE_DSN", "host=db user=u dbname=x")
	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.StoreType != "postgres" || c.StoreDSN != "host=db user=u dbname=x" {
		t.Errorf("unexpected store config: %s %q", c.StoreType, c.StoreDSN)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %q", c.AllowedOrigins)
	}
	if c.StatsPath != "/srv/stats.json" {
		t.Errorf("unexpected stats path %q", c.StatsPath)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")

	t.Setenv("MAX_TOOL_ROUNDS", "zero")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for bad MAX_TOOL_ROUNDS")
	}

	t.Setenv("MAX_TOOL_ROUNDS", "")
	t.Setenv("EXCHANGE_RETENTION", "forever")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for bad EXCHANGE_RETENTION")
	}
}

func TestValidate(t *testing.T) {
	c := NewConfig()
	if err := c.Validate(); err == nil {
		t.Error("expected error for azure without endpoint")
	}

	c.LLMProvider = ProviderGemini
	c.GeminiAPIKey = "key"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	c.WithPostgresStore("host=localhost user=u dbname=db sslmode=disable")
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	c.StoreType = "mysql"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unsupported store type")
	}

	c.LLMProvider = "bedrock"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "system.md"), []byte("sys"), 0644)

	if _, err := LoadPrompts(dir); err == nil {
		t.Error("expected error without developer.md")
	}

	os.WriteFile(filepath.Join(dir, "developer.md"), []byte("dev"), 0644)
	p, err := LoadPrompts(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.System != "sys" || p.Developer != "dev" {
		t.Errorf("unexpected prompts: %+v", p)
	}
}
