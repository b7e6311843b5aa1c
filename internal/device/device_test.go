package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestIDIsStableAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device-id")

	first, err := ID(path)
	if err != nil {
		t.Fatalf("ID failed: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("generated identity %q is not a UUID: %v", first, err)
	}

	second, err := ID(path)
	if err != nil {
		t.Fatalf("second ID failed: %v", err)
	}
	if second != first {
		t.Errorf("identity changed between calls: %q then %q", first, second)
	}
}

func TestIDReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device-id")
	if err := os.WriteFile(path, []byte("existing-id\n"), 0600); err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}

	got, err := ID(path)
	if err != nil {
		t.Fatalf("ID failed: %v", err)
	}
	if got != "existing-id" {
		t.Errorf("ID = %q, want existing-id", got)
	}
}

func TestIDRegeneratesFromEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device-id")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatalf("failed to seed empty identity: %v", err)
	}

	got, err := ID(path)
	if err != nil {
		t.Fatalf("ID failed: %v", err)
	}
	if got == "" {
		t.Error("ID returned an empty identity")
	}
}
