package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if got := s.DefaultFeed(); got != "" {
		t.Fatalf("DefaultFeed: got %q", got)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s1 := NewStore(path)
	if err := s1.SetDefaultFeed("BBC"); err != nil {
		t.Fatalf("SetDefaultFeed: %v", err)
	}
	s1.Set("volume", "7")
	if err := s1.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("tmp file left behind")
	}

	s2 := NewStore(path)
	if err := s2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s2.DefaultFeed(); got != "BBC" {
		t.Fatalf("DefaultFeed: got %q", got)
	}
	if v, ok := s2.Get("volume"); !ok || v != "7" {
		t.Fatalf("Get(volume): got %q %v", v, ok)
	}

	if err := s2.ClearDefaultFeed(); err != nil {
		t.Fatalf("ClearDefaultFeed: %v", err)
	}
	s3 := NewStore(path)
	_ = s3.Load()
	if got := s3.DefaultFeed(); got != "" {
		t.Fatalf("DefaultFeed after clear: got %q", got)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewStore(path).Load(); err == nil {
		t.Fatal("expected error on corrupt file")
	}
}

func TestStore_NilGet(t *testing.T) {
	var s *Store
	if _, ok := s.Get(KeyDefaultFeed); ok {
		t.Fatal("nil store must report missing")
	}
}

func TestStore_ConcurrentSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	s := NewStore(path)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SetDefaultFeed(fmt.Sprintf("S%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.DefaultFeed(); got == "" {
		t.Fatal("DefaultFeed empty after concurrent saves")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files in %s: %d entries", dir, len(entries))
	}
}
