package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pnpstats/adminapi/config"
	"github.com/pnpstats/adminapi/core/schema"
)

func TestSpecHolder_Get(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	doc := h.Get()
	if doc == nil {
		t.Fatal("Get returned nil")
	}
	if doc.Models["auth.user"].Prefix != "users" {
		t.Errorf("auth.user prefix = %s, want users", doc.Models["auth.user"].Prefix)
	}
}

func TestSpecHolder_Reload(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	if len(h.Get().Models) != 1 {
		t.Fatalf("initial model count = %d, want 1", len(h.Get().Models))
	}

	newContent := `
models:
  auth.user:
    prefix: users
  pnp.programa:
    prefix: programas
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new spec: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	doc := h.Get()
	if len(doc.Models) != 2 {
		t.Errorf("reloaded model count = %d, want 2", len(doc.Models))
	}
	if doc.Models["pnp.programa"].Prefix != "programas" {
		t.Errorf("pnp.programa prefix = %s, want programas", doc.Models["pnp.programa"].Prefix)
	}
}

func TestSpecHolder_OnChange(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var called bool
	var receivedDoc *schema.Document

	h.OnChange(func(doc *schema.Document) {
		mu.Lock()
		called = true
		receivedDoc = doc
		mu.Unlock()
	})

	newContent := `
models:
  auth.user:
    prefix: usuarios
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new spec: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	if !called {
		t.Error("OnChange callback was not called")
	}
	if receivedDoc == nil {
		t.Error("received nil document in callback")
	} else if receivedDoc.Models["auth.user"].Prefix != "usuarios" {
		t.Errorf("callback received prefix = %s, want usuarios", receivedDoc.Models["auth.user"].Prefix)
	}
	mu.Unlock()
}

func TestSpecHolder_ReloadInvalidSpec(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	// Missing prefix makes the document invalid
	invalidContent := `
models:
  auth.user:
    search: [username]
`
	if err := os.WriteFile(path, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("write invalid spec: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid document")
	}

	// Old document should still be served
	doc := h.Get()
	if doc.Models["auth.user"].Prefix != "users" {
		t.Errorf("should keep old document, got prefix = %s", doc.Models["auth.user"].Prefix)
	}
}

func TestSpecHolder_WatchFile(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var callCount int

	h.OnChange(func(doc *schema.Document) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	newContent := `
models:
  auth.user:
    prefix: usuarios
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new spec: %v", err)
	}

	// Wait for file watcher to trigger
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := callCount
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	if callCount == 0 {
		t.Error("file watcher did not trigger reload")
	}
	mu.Unlock()
}

func TestSpecHolder_ConcurrentAccess(t *testing.T) {
	path := writeSpec(t, validSpec())

	h, err := config.NewSpecHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSpecHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

// Helpers

func validSpec() string {
	return `
models:
  auth.user:
    prefix: users
    search: [username]
    ordering: [username]
`
}

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}
