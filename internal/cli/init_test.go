package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInit_CreatesPolicy(t *testing.T) {
	tmpDir := t.TempDir()

	initDir = tmpDir
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "policy.yaml"))
	if err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "governance") {
		t.Error("policy.yaml missing governance section")
	}
	if !strings.Contains(string(data), "call_sites") {
		t.Error("policy.yaml missing call_sites section")
	}
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	policyPath := filepath.Join(tmpDir, "policy.yaml")

	marker := "# hand-edited\n"
	if err := os.WriteFile(policyPath, []byte(marker), 0o644); err != nil {
		t.Fatal(err)
	}

	initDir = tmpDir
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(policyPath)
	if string(data) != marker {
		t.Error("existing policy.yaml was overwritten without --force")
	}
}

func TestRunInit_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	policyPath := filepath.Join(tmpDir, "policy.yaml")

	if err := os.WriteFile(policyPath, []byte("# old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	initDir = tmpDir
	initForce = true
	defer func() { initForce = false }()

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(policyPath)
	if !strings.Contains(string(data), "governance") {
		t.Error("policy.yaml not overwritten with --force")
	}
}
