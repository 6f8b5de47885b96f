package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfigMissingFile(t *testing.T) {
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if cfg.IsConfigured() {
		t.Fatalf("fresh settings must not be configured")
	}
	if cfg.Blockfrost.ProjectID != "" || cfg.Common.DataFile != "" {
		t.Fatalf("expected empty project id and data file")
	}
	if cfg.Mint.MinUtxoLovelace != 2_000_000 {
		t.Fatalf("default min utxo = %d", cfg.Mint.MinUtxoLovelace)
	}
}

func TestSaveAndReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "conf", "config.toml")
	cfg, err := NewConfig(file)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	cfg.Blockfrost.ProjectID = "preprodABCDEF"
	cfg.Common.DataFile = "/tmp/tcr.dat"
	cfg.Common.Network = "preprod"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Error: %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("settings file mode %v", info.Mode().Perm())
	}

	again, err := NewConfig(file)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if !again.IsConfigured() {
		t.Fatalf("reloaded settings should be configured")
	}
	if again.Blockfrost.ProjectID != "preprodABCDEF" || again.Common.Network != "preprod" {
		t.Fatalf("unexpected reload: %+v", again.Common)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TCR_BLOCKFROST_PROJECT_ID", "fromenv")
	t.Setenv("TCR_REST_PORT", "9999")

	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if cfg.Blockfrost.ProjectID != "fromenv" {
		t.Fatalf("project id = %q", cfg.Blockfrost.ProjectID)
	}
	if cfg.Server.RestPort != 9999 {
		t.Fatalf("rest port = %d", cfg.Server.RestPort)
	}
}

func TestSanitizeExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/minter")
	cfg := Default()
	cfg.Common.DataFile = "~/.tcr/project.dat"
	cfg.sanitize()
	if cfg.Common.DataFile != "/home/minter/.tcr/project.dat" {
		t.Fatalf("data file = %s", cfg.Common.DataFile)
	}
}
