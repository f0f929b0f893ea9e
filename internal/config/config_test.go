package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Search.APIKey = "serp-key"
	cfg.Ledger.ContractID = "smolbet.near"
	cfg.Ledger.RPCURL = "https://rpc.example"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Search.Timeout != 20*time.Second {
		t.Errorf("Unexpected search timeout: %v", cfg.Search.Timeout)
	}
	if cfg.Search.Results != 10 || cfg.Search.Locale != "en" || cfg.Search.Country != "us" {
		t.Errorf("Unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Registry.TTL != 30*24*time.Hour {
		t.Errorf("Unexpected registry TTL: %v", cfg.Registry.TTL)
	}
	if len(cfg.Auth.AllowedSigners) != 0 {
		t.Error("Allow-list must default to empty")
	}
	if cfg.Search.APIKey != "" || cfg.Ledger.SigningKey != "" {
		t.Error("Credentials must have no defaults")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Expected valid config to pass, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing search key", func(c *Config) { c.Search.APIKey = "" }, "search api key"},
		{"missing contract", func(c *Config) { c.Ledger.ContractID = "" }, "contract id"},
		{"missing rpc url", func(c *Config) { c.Ledger.RPCURL = "" }, "rpc url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("auth.allowed_signers", []string{"ai-creator.near"})
	v.Set("search.api_key", "serp-key")
	v.Set("search.results", 5)
	v.Set("judge.provider", "anthropic")
	v.Set("ledger.contract_id", "smolbet.near")
	v.Set("ledger.rpc_url", "https://rpc.example")
	v.Set("registry.dir", "/var/lib/oracle")

	cfg := FromViper(v)

	if len(cfg.Auth.AllowedSigners) != 1 || cfg.Auth.AllowedSigners[0] != "ai-creator.near" {
		t.Errorf("Unexpected allow-list: %v", cfg.Auth.AllowedSigners)
	}
	if cfg.Search.APIKey != "serp-key" || cfg.Search.Results != 5 {
		t.Errorf("Unexpected search config: %+v", cfg.Search)
	}
	if cfg.Judge.Provider != "anthropic" {
		t.Errorf("Unexpected judge provider: %s", cfg.Judge.Provider)
	}
	if cfg.Registry.Dir != "/var/lib/oracle" {
		t.Errorf("Unexpected registry dir: %s", cfg.Registry.Dir)
	}

	// Unset keys keep their defaults.
	if cfg.Search.Locale != "en" || cfg.Search.Timeout != 20*time.Second {
		t.Errorf("Expected defaults for unset keys, got %+v", cfg.Search)
	}
}
