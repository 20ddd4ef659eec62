package industry

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "industries.json", []byte(`[
        {"code": "801780", "name": "银行", "level": 1, "is_active": true},
        {"code": "801120", "name": "食品饮料", "level": 1, "is_active": true}
    ]`))

	cache := NewCache(path, zap.NewNop())
	if err := cache.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ind, ok := cache.Get("801780")
	if !ok || ind.Name != "银行" {
		t.Fatalf("Get(801780) = %+v, %v", ind, ok)
	}
	if got := len(cache.Active()); got != 2 {
		t.Fatalf("Active() returned %d entries, want 2", got)
	}
	if cache.LastLoad().IsZero() {
		t.Fatal("LastLoad must be set after Load")
	}
}

func TestLoadCSVDecodesGBK(t *testing.T) {
	utf8CSV := "code,name,parent\n801780,银行,\n8017,金融服务,80\n"
	gbkCSV, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(utf8CSV))
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "industries.csv", gbkCSV)

	cache := NewCache(path, zap.NewNop())
	if err := cache.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ind, ok := cache.Get("801780")
	if !ok {
		t.Fatal("code 801780 missing after CSV load")
	}
	if ind.Name != "银行" {
		t.Fatalf("GBK name decoded wrong: %q", ind.Name)
	}
	// CSV 没有显式层级，按代码长度推导
	if ind.Level != 3 {
		t.Errorf("6-digit code level = %d, want 3", ind.Level)
	}
	if short, ok := cache.Get("8017"); !ok || short.Level != 2 {
		t.Errorf("4-digit code level wrong: %+v", short)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	if err := cache.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}
