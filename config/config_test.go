package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return flags.Config()
}

func TestFlagsOnly(t *testing.T) {
	cfg, err := parse(t, "--port", "8080", "--token-secret", "s3cret", "--token-ttl", "60", "--debug")
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	want := Default()
	want.Addr = "0.0.0.0:8080"
	want.TokenSecret = "s3cret"
	want.TokenTTL = time.Minute
	want.Debug = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Url() != "http://localhost:8080" {
		t.Fatalf("Url = %q", cfg.Url())
	}
}

func TestMissingSecret(t *testing.T) {
	if _, err := parse(t); err == nil {
		t.Fatal("expected missing token secret error")
	}
}

func TestFileWithFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: 127.0.0.1:9000
db_url: mongodb://localhost:27017/surveys
token_secret: from-file
token_ttl: 5m
visit_ttl: 1h
redis_url: redis://localhost:6379/0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := parse(t, "--config", path, "--port", "9100", "--token-secret", "from-flag")
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9100" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.TokenSecret != "from-flag" || cfg.TokenTTL != 5*time.Minute || cfg.VisitTTL != time.Hour {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.UsesMongo() || cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected storage config %+v", cfg)
	}
}

func TestUsesMongo(t *testing.T) {
	cases := map[string]bool{
		"qsurvey.sqlite":              false,
		"mongodb://localhost:27017":   true,
		"mongodb+srv://cluster.local": true,
	}
	for url, want := range cases {
		if got := (Config{DBUrl: url}).UsesMongo(); got != want {
			t.Fatalf("UsesMongo(%q) = %v, want %v", url, got, want)
		}
	}
}
