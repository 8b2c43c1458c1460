// Package secrets resolves credential references found in configuration.
//
// A value is either a literal or a reference:
//
//	env:NEO4J_PASSWORD         environment variable
//	file:/run/secrets/db.json#neo4j   key in a JSON secrets file
//	file:/run/secrets/neo4j    whole file contents, trailing newline trimmed
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound reports a reference that points at nothing.
var ErrNotFound = errors.New("secret not found")

// Provider looks secrets up in one backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Resolver expands references. Resolved values are cached per reference.
type Resolver struct {
	env *EnvProvider

	mu    sync.Mutex
	files map[string]*FileProvider
	cache map[string]string
}

// NewResolver creates a resolver; envPrefix is tried before the bare name.
func NewResolver(envPrefix string) *Resolver {
	return &Resolver{
		env:   NewEnvProvider(envPrefix),
		files: make(map[string]*FileProvider),
		cache: make(map[string]string),
	}
}

// Resolve returns the secret behind ref, or ref itself if it is a literal.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, rest, ok := strings.Cut(ref, ":")
	if !ok || (scheme != "env" && scheme != "file") {
		return ref, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache[ref]; ok {
		return v, nil
	}

	var (
		val string
		err error
	)
	switch scheme {
	case "env":
		val, err = r.env.Get(ctx, rest)
	case "file":
		path, key, keyed := strings.Cut(rest, "#")
		if !keyed {
			val, err = readWhole(path)
			break
		}
		p, ok := r.files[path]
		if !ok {
			p, err = NewFileProvider(path)
			if err != nil {
				return "", err
			}
			r.files[path] = p
		}
		val, err = p.Get(ctx, key)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	r.cache[ref] = val
	return val, nil
}

func readWhole(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

// Get tries PREFIX_KEY first, then KEY.
func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(key)
	if p.prefix != "" {
		if val := os.Getenv(p.prefix + name); val != "" {
			return val, nil
		}
	}
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: env %s", ErrNotFound, name)
}
