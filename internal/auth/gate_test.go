package auth

import (
	"errors"
	"testing"
)

func TestGate_AllowsListedIdentity(t *testing.T) {
	gate := NewGate([]string{"ai-creator.near"})

	if err := gate.Authorize("ai-creator.near"); err != nil {
		t.Errorf("Expected listed identity to pass, got %v", err)
	}
}

func TestGate_DeniesUnlistedIdentity(t *testing.T) {
	gate := NewGate([]string{"ai-creator.near"})

	err := gate.Authorize("mallory.near")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got %v", err)
	}
}

func TestGate_EmptyListDeniesAll(t *testing.T) {
	gate := NewGate(nil)

	if err := gate.Authorize("anyone.near"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied with empty allow list, got %v", err)
	}
}

func TestGate_MultipleIdentities(t *testing.T) {
	gate := NewGate([]string{"a.near", "b.near"})

	for _, id := range []string{"a.near", "b.near"} {
		if err := gate.Authorize(id); err != nil {
			t.Errorf("Expected %s to pass, got %v", id, err)
		}
	}
	if err := gate.Authorize("c.near"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected c.near to be denied, got %v", err)
	}
}

func TestGate_ExactMatchOnly(t *testing.T) {
	gate := NewGate([]string{"ai-creator.near"})

	tests := []string{
		"AI-CREATOR.NEAR",
		"ai-creator.near ",
		"ai-creator",
		"",
	}
	for _, id := range tests {
		if err := gate.Authorize(id); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("Expected %q to be denied, got %v", id, err)
		}
	}
}

func TestGate_IgnoresBlankEntries(t *testing.T) {
	gate := NewGate([]string{"", "   ", "real.near"})

	if err := gate.Authorize(""); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected empty identity to be denied, got %v", err)
	}
	if err := gate.Authorize("real.near"); err != nil {
		t.Errorf("Expected real.near to pass, got %v", err)
	}
}
