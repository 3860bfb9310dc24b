package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{"HTTP_ADDR", "CACHE_TTL_SECONDS", "FRESHNESS_HOURS", "RECOMPUTE_WORKERS", "RECOMPUTE_RPS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" || c.CacheTTL != 15*time.Minute || c.Freshness != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Workers != 8 || c.RecomputeRPS != 5 || c.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(file, []byte("FRESHNESS_HOURS=6\nRECOMPUTE_RPS=2.5\nHTTP_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", file)
	t.Setenv("HTTP_ADDR", ":7000") // process env wins over the file
	// the file only fills variables that are not set at all
	for _, k := range []string{"FRESHNESS_HOURS", "RECOMPUTE_RPS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c := Load()
	if c.Freshness != 6*time.Hour || c.RecomputeRPS != 2.5 || c.HTTPAddr != ":7000" {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoad_BadFreshnessFallsBack(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("FRESHNESS_HOURS", "0")
	if c := Load(); c.Freshness != 24*time.Hour {
		t.Fatalf("freshness: %v", c.Freshness)
	}
}
