package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the explicit configuration passed into the pipeline
// constructor. Nothing in the pipeline reads ambient environment
// directly; credentials and the signer allow-list all arrive here.
type Config struct {
	Auth        AuthConfig        `yaml:"auth"`
	Search      SearchConfig      `yaml:"search"`
	Judge       JudgeConfig       `yaml:"judge"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Verify      VerifyConfig      `yaml:"verify"`
	Registry    RegistryConfig    `yaml:"registry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// AuthConfig holds the signer allow-list. An empty list denies every
// request; single-owner deployments configure exactly one entry.
type AuthConfig struct {
	AllowedSigners []string `yaml:"allowed_signers"`
}

// SearchConfig configures the evidence provider.
type SearchConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"` // override for tests
	Locale  string        `yaml:"locale"`   // hl
	Country string        `yaml:"country"`  // gl
	Results int           `yaml:"results"`  // num
	Timeout time.Duration `yaml:"timeout"`
}

// JudgeConfig configures the language-model capability used for query
// synthesis and verdict judging.
type JudgeConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// LedgerConfig configures the contract committer. The signing key is a
// dedicated credential, distinct from any inbound request's signer.
type LedgerConfig struct {
	RPCURL     string        `yaml:"rpc_url"`
	ContractID string        `yaml:"contract_id"`
	SigningKey string        `yaml:"signing_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VerifyConfig configures the evidence link checker.
type VerifyConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// RegistryConfig configures the processed-request registry. The disk
// directory keeps the run-once guarantee across restarts; empty means
// memory only.
type RegistryConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// ConcurrencyConfig bounds parallelism across independent events.
type ConcurrencyConfig struct {
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// HTTPConfig holds shared HTTP client settings.
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	NoProxy    string `yaml:"no_proxy"`
}

// DefaultConfig returns sensible defaults. Credentials and the signer
// allow-list have no defaults and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{},
		Search: SearchConfig{
			Locale:  "en",
			Country: "us",
			Results: 10,
			Timeout: 20 * time.Second,
		},
		Judge: JudgeConfig{
			Provider:  "openai",
			Timeout:   30,
			MaxTokens: 256,
		},
		Ledger: LedgerConfig{
			Timeout: 30 * time.Second,
		},
		Verify: VerifyConfig{
			Enabled:  true,
			Workers:  10,
			Timeout:  10 * time.Second,
			MaxBytes: 1 << 20,
		},
		Registry: RegistryConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 1,
			Burst:             3,
		},
		HTTP: HTTPConfig{
			UserAgent: "smolbet-oracle/0.1 (+https://github.com/smolbet/oracle)",
		},
	}
}

// FromViper overlays viper-managed settings (config file and ORACLE_*
// environment variables) onto the defaults.
func FromViper(v *viper.Viper) *Config {
	cfg := DefaultConfig()

	setString := func(dst *string, key string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("auth.allowed_signers") {
		cfg.Auth.AllowedSigners = v.GetStringSlice("auth.allowed_signers")
	}
	setString(&cfg.Search.APIKey, "search.api_key")
	setString(&cfg.Search.BaseURL, "search.base_url")
	setString(&cfg.Search.Locale, "search.locale")
	setString(&cfg.Search.Country, "search.country")
	if v.IsSet("search.results") {
		cfg.Search.Results = v.GetInt("search.results")
	}
	setString(&cfg.Judge.Provider, "judge.provider")
	setString(&cfg.Judge.Model, "judge.model")
	setString(&cfg.Judge.APIKey, "judge.api_key")
	setString(&cfg.Judge.BaseURL, "judge.base_url")
	setString(&cfg.Ledger.RPCURL, "ledger.rpc_url")
	setString(&cfg.Ledger.ContractID, "ledger.contract_id")
	setString(&cfg.Ledger.SigningKey, "ledger.signing_key")
	setString(&cfg.Registry.Dir, "registry.dir")
	if v.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = v.GetInt("concurrency.workers")
	}
	setString(&cfg.HTTP.UserAgent, "http.user_agent")

	return cfg
}

// Validate checks the settings the pipeline cannot run without. The
// search key check short-circuits the whole pipeline before any
// network call is possible.
func (c *Config) Validate() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("search api key not configured")
	}
	if c.Ledger.ContractID == "" {
		return fmt.Errorf("ledger contract id not configured")
	}
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger rpc url not configured")
	}
	return nil
}
