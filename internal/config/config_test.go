package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Flow.PrefixCap != 50 {
		t.Errorf("prefix cap default = %d, want 50", cfg.Flow.PrefixCap)
	}
	if cfg.Flow.SampleCap != 30 {
		t.Errorf("sample cap default = %d, want 30", cfg.Flow.SampleCap)
	}
	if cfg.Replay.TimeoutSeconds != 30 {
		t.Errorf("timeout default = %d, want 30", cfg.Replay.TimeoutSeconds)
	}
	if cfg.Replay.UserAgent == "" {
		t.Error("user agent default missing")
	}
	if cfg.Replay.SnippetLimit != 800 || cfg.Replay.DecodedLimit != 2000 {
		t.Errorf("snippet/decoded defaults = %d/%d", cfg.Replay.SnippetLimit, cfg.Replay.DecodedLimit)
	}
	if len(cfg.Classify.URLKeywords) == 0 || len(cfg.Classify.ParamNames) == 0 {
		t.Error("classify defaults missing")
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port default = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level default = %q, want info", cfg.Log.Level)
	}
}

func TestSetDefaultsPreservesExisting(t *testing.T) {
	cfg := &Config{}
	cfg.Flow.PrefixCap = 5
	cfg.Replay.UserAgent = "custom/1.0"
	cfg.SetDefaults()

	if cfg.Flow.PrefixCap != 5 {
		t.Errorf("prefix cap overwritten: %d", cfg.Flow.PrefixCap)
	}
	if cfg.Replay.UserAgent != "custom/1.0" {
		t.Errorf("user agent overwritten: %q", cfg.Replay.UserAgent)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
flow:
  prefix_cap: 7
replay:
  user_agent: "test-agent/2.0"
  insecure_tls: true
server:
  port: 8088
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Flow.PrefixCap != 7 {
		t.Errorf("prefix cap = %d, want 7", cfg.Flow.PrefixCap)
	}
	if cfg.Replay.UserAgent != "test-agent/2.0" {
		t.Errorf("user agent = %q", cfg.Replay.UserAgent)
	}
	if !cfg.Replay.InsecureTLS {
		t.Error("insecure_tls not applied")
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("port = %d, want 8088", cfg.Server.Port)
	}
	// Untouched sections still get defaults.
	if cfg.Flow.SampleCap != 30 {
		t.Errorf("sample cap = %d, want default 30", cfg.Flow.SampleCap)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Flow.PrefixCap != 50 {
		t.Errorf("prefix cap = %d, want default 50", cfg.Flow.PrefixCap)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("flow: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUTHFLOW_FLOW_PREFIX_CAP", "12")
	t.Setenv("AUTHFLOW_REPLAY_INSECURE_TLS", "true")
	t.Setenv("AUTHFLOW_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Flow.PrefixCap != 12 {
		t.Errorf("prefix cap = %d, want 12", cfg.Flow.PrefixCap)
	}
	if !cfg.Replay.InsecureTLS {
		t.Error("insecure tls override not applied")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvOverrideBadIntIgnored(t *testing.T) {
	t.Setenv("AUTHFLOW_SERVER_PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := os.Stat(cfg.Output.Dir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}

	cfg.Output.Dir = "   "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for blank output dir")
	}
}
