package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadPayload_Inline(t *testing.T) {
	raw, err := readPayload(`{"requestId":"r1"}`)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(raw) != `{"requestId":"r1"}` {
		t.Errorf("Unexpected payload: %s", raw)
	}
}

func TestReadPayload_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(`{"requestId":"r2"}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	raw, err := readPayload("@" + path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(raw) != `{"requestId":"r2"}` {
		t.Errorf("Unexpected payload: %s", raw)
	}
}

func TestReadPayload_MissingFile(t *testing.T) {
	if _, err := readPayload("@" + filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
