package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("ROADNET_NEO4J_PASSWORD", "prefixed")
	t.Setenv("BARE_SECRET", "bare")
	p := NewEnvProvider("ROADNET_")

	if got, err := p.Get(context.Background(), "neo4j_password"); err != nil || got != "prefixed" {
		t.Fatalf("expected prefixed value, got %q, %v", got, err)
	}
	if got, err := p.Get(context.Background(), "bare_secret"); err != nil || got != "bare" {
		t.Fatalf("expected bare value, got %q, %v", got, err)
	}
	if _, err := p.Get(context.Background(), "missing_secret_xyz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if p.Name() != "env" {
		t.Errorf("expected name 'env', got %s", p.Name())
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider(t *testing.T) {
	path := writeFile(t, "secrets.json", `{"neo4j": "s3cret"}`)
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := p.Get(context.Background(), "neo4j"); got != "s3cret" {
		t.Errorf("expected s3cret, got %q", got)
	}
	if _, err := p.Get(context.Background(), "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"neo4j": "rotated"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatal(err)
	}
	if got, _ := p.Get(context.Background(), "neo4j"); got != "rotated" {
		t.Errorf("expected rotated after reload, got %q", got)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	if _, err := NewFileProvider(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := NewFileProvider(writeFile(t, "bad.json", "not json")); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolver(t *testing.T) {
	t.Setenv("ROADNET_DB_PASS", "from-env")
	jsonPath := writeFile(t, "secrets.json", `{"neo4j": "from-json"}`)
	rawPath := writeFile(t, "neo4j", "from-file\n")

	r := NewResolver("ROADNET_")
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{"plain-password", "plain-password"},
		{"bolt://not-a-ref", "bolt://not-a-ref"},
		{"env:db_pass", "from-env"},
		{"file:" + jsonPath + "#neo4j", "from-json"},
		{"file:" + rawPath, "from-file"},
	}
	for _, tt := range tests {
		got, err := r.Resolve(ctx, tt.ref)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}

	if _, err := r.Resolve(ctx, "env:missing_var_xyz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Resolve(ctx, "file:"+jsonPath+"#other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_Caches(t *testing.T) {
	t.Setenv("ROADNET_CACHED", "first")
	r := NewResolver("ROADNET_")

	if got, _ := r.Resolve(context.Background(), "env:cached"); got != "first" {
		t.Fatalf("expected first, got %q", got)
	}
	t.Setenv("ROADNET_CACHED", "second")
	if got, _ := r.Resolve(context.Background(), "env:cached"); got != "first" {
		t.Errorf("expected cached first, got %q", got)
	}
}
