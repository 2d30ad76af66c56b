package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func writeConfig(t *testing.T, storage string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
server:
  addr: ":0"
%s
security:
  hash_cost: 4
logging:
  level: "error"
  dir: ""
`, storage)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func healthz(t *testing.T, b *Bootstrap) int {
	t.Helper()
	rec := httptest.NewRecorder()
	b.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec.Code
}

func TestInitialize_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stocks.db")
	cfgPath := writeConfig(t, fmt.Sprintf("storage:\n  driver: sqlite\n  sqlite_path: %q", dbPath))

	b := NewBootstrap()
	if err := b.Initialize(context.Background(), cfgPath, Overrides{Addr: ":3999"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if b.Config.Server.Addr != ":3999" {
		t.Errorf("override not applied: %s", b.Config.Server.Addr)
	}
	if code := healthz(t, b); code != http.StatusOK {
		t.Errorf("healthz = %d", code)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestInitialize_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfgPath := writeConfig(t, fmt.Sprintf("storage:\n  driver: redis\n  redis:\n    addr: %q", mr.Addr()))

	b := NewBootstrap()
	if err := b.Initialize(context.Background(), cfgPath, Overrides{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if code := healthz(t, b); code != http.StatusOK {
		t.Errorf("healthz = %d", code)
	}
}

func TestInitialize_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfgPath := writeConfig(t, fmt.Sprintf("storage:\n  driver: redis\n  redis:\n    addr: %q", addr))

	if err := NewBootstrap().Initialize(context.Background(), cfgPath, Overrides{}); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}
