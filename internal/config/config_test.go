package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrInitWritesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.toml")

	cfg, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if cfg.OutputInterval != 1.0 {
		t.Fatalf("default OutputInterval = %v, want 1.0", cfg.OutputInterval)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected conf.toml to be written: %v", err)
	}

	cfg2, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("second LoadOrInit: %v", err)
	}
	if cfg2.Sep != cfg.Sep {
		t.Fatalf("round-tripped config mismatch: %+v vs %+v", cfg2, cfg)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.toml")
	body := "sep = \" \"\noutput_interval = 1.0\nexpiry_character = \"_\"\nbogus_field = true\n[sink]\nstdout = true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrInit(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestValidateRejectsAmbiguousSink(t *testing.T) {
	cfg := Default()
	cfg.Sink.Stderr = true // now both stdout and stderr set
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for ambiguous sink")
	}
}

func TestValidateRejectsDuplicateFeedNames(t *testing.T) {
	cfg := Default()
	cfg.Feeds = []Feed{
		{Name: "a", Command: "echo hi"},
		{Name: "a", Command: "echo bye"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for duplicate feed names")
	}
}
