// Package config assembles the process-wide configuration object: database
// connection parameters, LLM provider API keys, wiki credentials, the
// cluster-key to workspace-URL directory, and the token/threshold knobs that
// size the document authoring pipelines.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DocSlot identifies one of the five fixed per-pipeline document positions.
type DocSlot string

const (
	SlotMaster      DocSlot = "01_MASTER"
	SlotSchema      DocSlot = "02_SCHEMA"
	SlotBusiness    DocSlot = "03_BUSINESS"
	SlotFilters     DocSlot = "04_FILTERS"
	SlotPatterns    DocSlot = "05_PATTERNS"
	SlotLoyalty     DocSlot = "01_LOYALTY_MASTER"
	SlotCampaign    DocSlot = "02_CAMPAIGN_REFERENCE"
	SlotPromotion   DocSlot = "03_PROMOTION_RULES"
	SlotAudience    DocSlot = "04_AUDIENCE_SEGMENTS"
	SlotCustomizing DocSlot = "05_CUSTOMIZATIONS"
)

// TokenBudgets holds the per-slot token budgets described in §4.3/§6.
type TokenBudgets struct {
	Master      int
	Schema      int
	Business    int
	Filters     int
	Patterns    int
	Focus       int
	MaxFocusDoc int
}

// DefaultTokenBudgets mirrors the spec's stated defaults (2k/3k/3k/2k/4k, 3 focus docs).
func DefaultTokenBudgets() TokenBudgets {
	return TokenBudgets{
		Master:      2000,
		Schema:      3000,
		Business:    3000,
		Filters:     2000,
		Patterns:    4000,
		Focus:       3000,
		MaxFocusDoc: 3,
	}
}

// FilterThresholds holds the Filter Classifier tier thresholds (§4.3).
type FilterThresholds struct {
	Mandatory    float64 // global weight fraction, default 0.50
	TableDefault float64 // per-table weight fraction, default 0.30
	Common       float64 // per-table weight fraction, default 0.10
}

// DefaultFilterThresholds returns the spec-mandated defaults.
func DefaultFilterThresholds() FilterThresholds {
	return FilterThresholds{Mandatory: 0.50, TableDefault: 0.30, Common: 0.10}
}

// LLMProviderConfig holds one provider's API key and base settings.
type LLMProviderConfig struct {
	Name   string
	APIKey string
	Model  string
}

// WikiConfig holds the outbound wiki (Confluence-like) connection settings.
type WikiConfig struct {
	BaseURL  string
	Username string
	APIToken string
}

// Config is the umbrella configuration object, in the shape of the teacher's
// pkg/config.Config: one struct assembled once at startup and threaded
// through every component that needs it.
type Config struct {
	configDir string

	DatabaseURL   string
	SessionSecret string

	LLMProviders map[string]LLMProviderConfig
	Wiki         WikiConfig

	// ClusterWorkspaceDirectory maps a cluster key to the Databricks-style
	// workspace base URL used by the Workspace Crawler (§4.3).
	ClusterWorkspaceDirectory map[string]string

	Tokens     TokenBudgets
	Filters    FilterThresholds
	MaxPayload int // max payload characters (default 200,000)

	SanitizeTokenCap int
	ChatTokenCap     int

	CrawlerConcurrency int // bounded semaphore size, default 8
	MaxRounds          int // chat orchestrator hard round cap, default 5
}

// ConfigStats mirrors the teacher's ConfigStats/Stats() convenience surface.
type ConfigStats struct {
	LLMProviders int
	ClusterCount int
}

func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviders),
		ClusterCount: len(c.ClusterWorkspaceDirectory),
	}
}

func (c *Config) ConfigDir() string { return c.configDir }

// Initialize loads a .env file from configDir (if present) then assembles
// Config from the environment, following cmd/tarsy/main.go's startup idiom.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	providers := map[string]LLMProviderConfig{}
	for _, name := range strings.Split(getEnv("LLM_PROVIDERS", "anthropic"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		upper := strings.ToUpper(name)
		providers[name] = LLMProviderConfig{
			Name:   name,
			APIKey: os.Getenv(upper + "_API_KEY"),
			Model:  getEnv(upper+"_MODEL", ""),
		}
	}

	clusterDir := map[string]string{}
	for _, pair := range strings.Split(getEnv("CLUSTER_WORKSPACE_DIRECTORY", ""), ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		clusterDir[kv[0]] = kv[1]
	}

	tokens := DefaultTokenBudgets()
	tokens.Master = getEnvInt("TOKEN_BUDGET_MASTER", tokens.Master)
	tokens.Schema = getEnvInt("TOKEN_BUDGET_SCHEMA", tokens.Schema)
	tokens.Business = getEnvInt("TOKEN_BUDGET_BUSINESS", tokens.Business)
	tokens.Filters = getEnvInt("TOKEN_BUDGET_FILTERS", tokens.Filters)
	tokens.Patterns = getEnvInt("TOKEN_BUDGET_PATTERNS", tokens.Patterns)
	tokens.Focus = getEnvInt("TOKEN_BUDGET_FOCUS", tokens.Focus)
	tokens.MaxFocusDoc = getEnvInt("MAX_FOCUS_DOCS", tokens.MaxFocusDoc)

	filters := DefaultFilterThresholds()
	filters.Mandatory = getEnvFloat("FILTER_THRESHOLD_MANDATORY", filters.Mandatory)
	filters.TableDefault = getEnvFloat("FILTER_THRESHOLD_TABLE_DEFAULT", filters.TableDefault)
	filters.Common = getEnvFloat("FILTER_THRESHOLD_COMMON", filters.Common)

	cfg := &Config{
		configDir:     configDir,
		DatabaseURL:   dbURL,
		SessionSecret: sessionSecret,
		LLMProviders:  providers,
		Wiki: WikiConfig{
			BaseURL:  getEnv("WIKI_BASE_URL", ""),
			Username: getEnv("WIKI_USERNAME", ""),
			APIToken: getEnv("WIKI_API_TOKEN", ""),
		},
		ClusterWorkspaceDirectory: clusterDir,
		Tokens:                    tokens,
		Filters:                   filters,
		MaxPayload:                getEnvInt("MAX_PAYLOAD_CHARS", 200000),
		SanitizeTokenCap:          getEnvInt("SANITIZE_TOKEN_CAP", 60000),
		ChatTokenCap:              getEnvInt("CHAT_TOKEN_CAP", 8000),
		CrawlerConcurrency:        getEnvInt("CRAWLER_CONCURRENCY", 8),
		MaxRounds:                 getEnvInt("CHAT_MAX_ROUNDS", 5),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
