package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSecretNotFound is returned when a local secrets file lacks the requested name.
var ErrSecretNotFound = errors.New("config: secret not found")

const defaultLocalSecretsFile = ".secrets.local"

// LocalSecrets resolves secret://<name> references from a dotenv-style file,
// read once on first use. It stands in for a managed secret store in local
// and CI environments.
type LocalSecrets struct {
	path string

	once   sync.Once
	values map[string]string
	err    error
}

// NewLocalSecrets returns a resolver backed by path (".secrets.local" when blank).
func NewLocalSecrets(path string) *LocalSecrets {
	if strings.TrimSpace(path) == "" {
		path = defaultLocalSecretsFile
	}
	return &LocalSecrets{path: path}
}

// ResolveSecret implements SecretResolver.
func (l *LocalSecrets) ResolveSecret(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.once.Do(func() {
		l.values, l.err = loadDotEnv(l.path)
	})
	if l.err != nil {
		return "", l.err
	}
	name := strings.TrimPrefix(normalizeSecretReference(ref), "secret://")
	if v, ok := l.values[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}
