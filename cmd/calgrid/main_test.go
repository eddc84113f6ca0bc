package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/store"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "values.db")
	return cfg
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()

	t.Run("demo overrides backend", func(t *testing.T) {
		src, closeFn, err := openSource(ctx, config.DefaultConfig(), sourceFlags{backend: "redis", demo: true})
		if err != nil {
			t.Fatalf("openSource: %v", err)
		}
		defer closeFn()
		records, err := src.FetchAll(ctx)
		if err != nil || len(records) == 0 {
			t.Fatalf("demo FetchAll = %d records, err %v", len(records), err)
		}
	})

	t.Run("memory flag", func(t *testing.T) {
		src, closeFn, err := openSource(ctx, config.DefaultConfig(), sourceFlags{backend: "memory"})
		if err != nil {
			t.Fatalf("openSource: %v", err)
		}
		defer closeFn()
		if _, ok := src.(*store.MemoryStore); !ok {
			t.Fatalf("source = %T, want *store.MemoryStore", src)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, _, err := openSource(ctx, config.DefaultConfig(), sourceFlags{backend: "etcd"}); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})

	t.Run("sqlite from config", func(t *testing.T) {
		src, closeFn, err := openSource(ctx, sqliteConfig(t), sourceFlags{})
		if err != nil {
			t.Fatalf("openSource: %v", err)
		}
		defer closeFn()
		if _, ok := src.(*store.SQLiteStore); !ok {
			t.Fatalf("source = %T, want *store.SQLiteStore", src)
		}
	})
}

func TestSetCommandWritesAndClears(t *testing.T) {
	cfg := sqliteConfig(t)
	flags := &sourceFlags{}

	run := func(args ...string) string {
		t.Helper()
		cmd := newSetCommand(cfg, flags)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("set %v: %v", args, err)
		}
		return out.String()
	}

	if got := run("2025-03-04", "12.5"); !strings.HasPrefix(got, core.UpsertActionAppended) {
		t.Fatalf("first set output = %q, want appended", got)
	}
	if got := run("2025-03-04", "null"); !strings.Contains(got, "= null") {
		t.Fatalf("clear output = %q", got)
	}

	db, err := store.OpenSQLite(cfg.Store.SQLitePath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	records, err := db.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 1 || records[0].Value != nil {
		t.Fatalf("records = %+v, want one cleared day", records)
	}
}

func TestSetCommandRejectsBadValue(t *testing.T) {
	cmd := newSetCommand(sqliteConfig(t), &sourceFlags{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"2025-03-04", "ten"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestImportCommand(t *testing.T) {
	cfg := sqliteConfig(t)
	file := filepath.Join(t.TempDir(), "records.json")
	payload := `[{"year":2025,"monthIndex":0,"day":5,"value":3},{"year":2025,"monthIndex":1,"day":30,"value":1}]`
	if err := os.WriteFile(file, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newImportCommand(cfg, &sourceFlags{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{file})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.HasPrefix(out.String(), "imported 1 of 2") {
		t.Fatalf("output = %q, want invalid date skipped", out.String())
	}
}

func TestExportCommandWritesSVG(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newExportCommand(config.DefaultConfig(), &sourceFlags{demo: true})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--width", "800", "--height", "400"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "<svg") || !strings.HasSuffix(strings.TrimSpace(out.String()), "</svg>") {
		t.Fatalf("export output is not an SVG document: %.80q", out.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Fatalf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Fatalf("firstNonEmpty = %q, want empty", got)
	}
}

func TestVersionCommandDevBuildSkipsCheck(t *testing.T) {
	cmd := newVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--check"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version --check: %v", err)
	}
	if !strings.Contains(out.String(), "update check skipped") {
		t.Fatalf("output = %q", out.String())
	}
}
