package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Grid.Stride != 26 || cfg.Grid.CellSize != 24 || cfg.Grid.Radius != 6 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Grid.MinRows != 1 || cfg.Grid.MaxRows != 16 {
		t.Errorf("rows bounds = %d..%d, want 1..16", cfg.Grid.MinRows, cfg.Grid.MaxRows)
	}
	if cfg.Grid.FooterHeight != 40 || cfg.Grid.TitleBarHeight != 50 {
		t.Errorf("chrome = %v/%v", cfg.Grid.FooterHeight, cfg.Grid.TitleBarHeight)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Store.RedisKey != "calgrid:values" {
		t.Errorf("redis key = %q", cfg.Store.RedisKey)
	}
	if cfg.Grid.MonthName(0) != "Jan" || cfg.Grid.MonthName(12) != "" {
		t.Error("month names")
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Grid.Stride != 26 {
		t.Error("should return defaults for missing file")
	}
}

func TestLoadFrom_ValidFileBackfillsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "grid": {"stride": 30, "max_rows": 0},
  "store": {"backend": "redis", "redis_addr": "cache:6379"},
  "theme": "Dark"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Grid.Stride != 30 {
		t.Errorf("stride = %v, want 30", cfg.Grid.Stride)
	}
	if cfg.Grid.MaxRows != 16 {
		t.Errorf("max rows = %d, want backfilled 16", cfg.Grid.MaxRows)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.RedisAddr != "cache:6379" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Store.RedisKey != "calgrid:values" {
		t.Errorf("redis key = %q, want default", cfg.Store.RedisKey)
	}
	if cfg.Theme != "Dark" {
		t.Errorf("theme = %q", cfg.Theme)
	}
}

func TestLoadFrom_InvalidJSONReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.Grid.Stride != 26 {
		t.Error("expected defaults on parse error")
	}
}

func TestLoadFrom_UnknownBackendFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"store":{"backend":"postgres"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("backend = %q, want sqlite", cfg.Store.Backend)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("CALGRID_STORE_BACKEND", "memory")
	t.Setenv("CALGRID_REDIS_KEY", "other:key")
	t.Setenv("CALGRID_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("CALGRID_WRITE_LIMIT", "5")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Store.RedisKey != "other:key" {
		t.Errorf("redis key = %q", cfg.Store.RedisKey)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" || cfg.Server.WriteLimitPerMinute != 5 {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Store.Backend = BackendMemory
	cfg.Store.RedisPassword = "never-written"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("expected trailing newline")
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Store.Backend != BackendMemory {
		t.Errorf("backend = %q", got.Store.Backend)
	}
	if got.Store.RedisPassword != "" {
		t.Error("redis password must not be persisted in config.json")
	}
}

func TestSaveThemeTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveThemeTo(path, "Dark"); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "Dark" {
		t.Errorf("theme = %q", cfg.Theme)
	}
}
