package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/leofalp/sequencer/core/protocol"
)

// ========== Helpers ==========

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func envMap(values map[string]string) LoadOption {
	return WithLookupEnv(func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	})
}

// ========== Load ==========

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
client:
  server_url: http://backend:9000
  model: gemini-2.5-pro
server:
  allowed_origins: ["http://a", "http://b"]
  node_timeout: 90s
logging:
  level: debug
`)

	cfg, err := Load(path, WithDotEnv(""), envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := DefaultConfig()
	want.Client.ServerURL = "http://backend:9000"
	want.Client.Model = protocol.ModelGeminiPro
	want.Server.AllowedOrigins = []string{"http://a", "http://b"}
	want.Server.NodeTimeout = 90 * time.Second
	want.Logging.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "client:\n  server_url: http://from-file\n")

	cfg, err := Load(path, WithDotEnv(""), envMap(map[string]string{
		EnvServerURL:      "http://from-env",
		EnvAllowedOrigins: "http://x, ,http://y",
		EnvMaxConcurrency: "8",
		EnvGoogleAPIKey:   "google-key",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.ServerURL != "http://from-env" {
		t.Errorf("ServerURL = %q", cfg.Client.ServerURL)
	}
	if diff := cmp.Diff([]string{"http://x", "http://y"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d", cfg.Server.MaxConcurrency)
	}
	if cfg.Gemini.APIKey != "google-key" {
		t.Errorf("APIKey = %q, want GOOGLE_API_KEY fallback", cfg.Gemini.APIKey)
	}
}

func TestLoad_GeminiKeyPreferredOverGoogleKey(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "c.yaml", "{}"), WithDotEnv(""), envMap(map[string]string{
		EnvGeminiAPIKey: "gemini-key",
		EnvGoogleAPIKey: "google-key",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "gemini-key" {
		t.Errorf("APIKey = %q", cfg.Gemini.APIKey)
	}
}

func TestLoad_DotEnvBelowProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", "{}")
	dotEnvPath := writeFile(t, dir, ".env", "SEQUENCER_MODEL=gemini-2.5-flash-lite\nSEQUENCER_LISTEN_ADDR=:9999\n")

	cfg, err := Load(configPath, WithDotEnv(dotEnvPath), envMap(map[string]string{
		EnvListenAddr: ":7777",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Model != protocol.ModelGeminiFlashLite {
		t.Errorf("Model = %q, want value from .env", cfg.Client.Model)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, want process env value", cfg.Server.ListenAddr)
	}
}

func TestLoad_MissingDotEnv_Ignored(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "config.yaml", "{}")
	if _, err := Load(configPath, WithDotEnv(filepath.Join(t.TempDir(), "absent.env")), envMap(nil)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_ExplicitMissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), WithDotEnv(""), envMap(nil))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_OptionalMissingFile_UsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), WithOptionalFile(), WithDotEnv(""), envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "malformed yaml", yaml: "client: [unterminated"},
		{name: "unknown model", yaml: "client:\n  model: gpt-4\n"},
		{name: "unknown model from env", yaml: "{}", env: map[string]string{EnvModel: "claude"}},
		{name: "negative concurrency", yaml: "server:\n  max_concurrency: -1\n"},
		{name: "bad concurrency env", yaml: "{}", env: map[string]string{EnvMaxConcurrency: "many"}},
		{name: "empty server url", yaml: "client:\n  server_url: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.yaml)
			if _, err := Load(path, WithDotEnv(""), envMap(tt.env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_UnknownModel_WrapsSentinel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "client:\n  model: gpt-4\n")
	_, err := Load(path, WithDotEnv(""), envMap(nil))
	if !errors.Is(err, protocol.ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
}

// ========== Save ==========

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Client.Model = protocol.ModelGeminiFlash
	cfg.Server.NodeTimeout = time.Minute

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, WithDotEnv(""), envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
