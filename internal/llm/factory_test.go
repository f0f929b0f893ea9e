package llm

import (
	"strings"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", false},
		{"OpenAI", "openai", false},
		{"anthropic", "anthropic", false},
		{"claude", "anthropic", false},
		{"ollama", "ollama", false},
		{"", "", true},
		{"gemini", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, APIKey: "test-key"})
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for provider %q", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewProvider_UnknownListsSupported(t *testing.T) {
	_, err := NewProvider(Config{Provider: "nope"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("Expected supported providers in error, got %v", err)
	}
}
