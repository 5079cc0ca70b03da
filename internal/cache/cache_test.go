package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/textaudit/internal/model"
)

func TestKey(t *testing.T) {
	content := []byte("%PDF-1.7 form")

	k1 := Key("extract", content, "教材名称", "ISBN")
	k2 := Key("extract", content, "教材名称", "ISBN")
	if k1 != k2 {
		t.Errorf("expected stable key, got %s and %s", k1, k2)
	}
	if !strings.HasPrefix(k1, "textaudit-v1-extract-") {
		t.Errorf("unexpected key prefix: %s", k1)
	}

	others := []string{
		Key("render", content),
		Key("extract", content, "教材名称"),
		Key("extract", []byte("%PDF-1.7 other"), "教材名称", "ISBN"),
		Key("extract", content, "教材名称ISBN"),
	}
	for _, k := range others {
		if k == k1 {
			t.Errorf("expected distinct key for different input, got %s", k)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("expected hit with v, got %q (%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("render", []byte("doc"))

	if err := c.Set(key, []byte("| 书名 | 运筹学 |"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "| 书名 | 运筹学 |" {
		t.Fatalf("expected hit, got %q (%v)", got, ok)
	}

	// A fresh instance over the same directory sees the entry
	if _, ok := NewDiskCache(dir, time.Hour).Get(key); !ok {
		t.Error("expected entry to persist across instances")
	}

	if err := c.Set(key, []byte("stale"), time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(c.path(key)); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be removed")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := "textaudit-v1-render-abcd"

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(key); ok {
		t.Error("expected corrupt entry to miss")
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of removed entry should succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	key := Key("extract", []byte("form"))

	if err := NewDiskCache(dir, time.Hour).Set(key, []byte("{}"), 0); err != nil {
		t.Fatal(err)
	}

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	if _, ok := c.Get(key); !ok {
		t.Fatal("expected disk hit through layered cache")
	}
	if _, ok := c.memory.Get(key); !ok {
		t.Error("expected disk hit to be promoted into memory")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expected miss after clear")
	}
}

func TestFromConfig(t *testing.T) {
	if c := FromConfig(model.CacheConfig{Enabled: false}); c != nil {
		t.Errorf("expected nil cache when disabled, got %T", c)
	}
	if _, ok := FromConfig(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}).(*MemoryCache); !ok {
		t.Error("expected memory-only cache without a directory")
	}
	cfg := model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour}
	if _, ok := FromConfig(cfg).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
