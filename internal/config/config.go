package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"finitefield.org/hanko-seo/internal/seo"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultProfilePath  = "seo.yaml"
	defaultContentDir   = "content"
	defaultPublicDir    = "public"
	defaultContentTTL   = 5 * time.Minute
	defaultLogLevel     = "info"
	defaultLocale       = "ja"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Site     SiteConfig
	Previews PreviewConfig
	Favicon  FaviconConfig
	Log      LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig locates the profile and content served by the site.
type SiteConfig struct {
	BaseURL         string
	ProfilePath     string
	ContentDir      string
	PublicDir       string
	ContentCacheTTL time.Duration
	DefaultLocale   string
	Locales         []string
}

// PreviewConfig holds the signing keys of the preview image services.
type PreviewConfig struct {
	FlippKey        string
	PreviewifyKey   string
	PreviewLinksKey string
}

// SigningKeys maps each configured key to its service.
func (p PreviewConfig) SigningKeys() map[seo.Service]string {
	keys := map[seo.Service]string{}
	if p.FlippKey != "" {
		keys[seo.Flipp] = p.FlippKey
	}
	if p.PreviewifyKey != "" {
		keys[seo.Previewify] = p.PreviewifyKey
	}
	if p.PreviewLinksKey != "" {
		keys[seo.PreviewLinks] = p.PreviewLinksKey
	}
	return keys
}

// FaviconConfig configures favicon generation.
type FaviconConfig struct {
	Source    string
	OutputDir string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string
	Development bool
	// ProjectID links request logs to Cloud Trace when set.
	ProjectID string
}

// SecretResolver resolves references to external secrets.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets were empty after resolution.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the missing secret identifiers.
func (e *MissingSecretsError) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	sort.Strings(out)
	return out
}

// RedactedNames returns hashed identifiers safe for logs.
func (e *MissingSecretsError) RedactedNames() []string {
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, redactSecretName(name))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory
// (e.g. "Previews.FlippKey").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the configuration by combining defaults, .env overrides,
// environment variables and secret lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Cloud Run injects PORT; SEO_SERVER_PORT wins when both are set.
	port := stringWithDefault(lookup, "PORT", defaultPort)

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SEO_SERVER_PORT", port),
			ReadTimeout:  durationWithDefault(lookup, "SEO_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SEO_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SEO_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			BaseURL:         strings.TrimRight(stringWithDefault(lookup, "SEO_SITE_BASE_URL", ""), "/"),
			ProfilePath:     stringWithDefault(lookup, "SEO_SITE_PROFILE", defaultProfilePath),
			ContentDir:      stringWithDefault(lookup, "SEO_SITE_CONTENT_DIR", defaultContentDir),
			PublicDir:       stringWithDefault(lookup, "SEO_SITE_PUBLIC_DIR", defaultPublicDir),
			ContentCacheTTL: durationWithDefault(lookup, "SEO_SITE_CONTENT_CACHE_TTL", defaultContentTTL),
			DefaultLocale:   strings.ToLower(stringWithDefault(lookup, "SEO_SITE_DEFAULT_LOCALE", defaultLocale)),
			Locales:         csvWithDefault(lookup, "SEO_SITE_LOCALES"),
		},
		Previews: PreviewConfig{
			FlippKey:        stringWithDefault(lookup, "SEO_PREVIEW_FLIPP_KEY", ""),
			PreviewifyKey:   stringWithDefault(lookup, "SEO_PREVIEW_PREVIEWIFY_KEY", ""),
			PreviewLinksKey: stringWithDefault(lookup, "SEO_PREVIEW_PREVIEWLINKS_KEY", ""),
		},
		Favicon: FaviconConfig{
			Source:    stringWithDefault(lookup, "SEO_FAVICON_SOURCE", ""),
			OutputDir: stringWithDefault(lookup, "SEO_FAVICON_OUTPUT_DIR", ""),
		},
		Log: LogConfig{
			Level:       strings.ToLower(stringWithDefault(lookup, "SEO_LOG_LEVEL", defaultLogLevel)),
			Development: boolWithDefault(lookup, "SEO_LOG_DEVELOPMENT", false),
			ProjectID:   stringWithDefault(lookup, "SEO_LOG_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
		},
	}

	if cfg.Favicon.OutputDir == "" {
		cfg.Favicon.OutputDir = cfg.Site.PublicDir
	}
	if cfg.Favicon.Source == "" {
		cfg.Favicon.Source = filepath.Join(cfg.Site.PublicDir, "assets", "logo.png")
	}
	if len(cfg.Site.Locales) == 0 {
		cfg.Site.Locales = []string{cfg.Site.DefaultLocale}
	}

	resolvedSecrets := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Previews.FlippKey", &cfg.Previews.FlippKey},
		{"Previews.PreviewifyKey", &cfg.Previews.PreviewifyKey},
		{"Previews.PreviewLinksKey", &cfg.Previews.PreviewLinksKey},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
		resolvedSecrets[target.name] = strings.TrimSpace(resolved)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if strings.TrimSpace(cfg.Site.PublicDir) == "" {
		missing = append(missing, "Site.PublicDir")
	}
	if cfg.Site.ContentCacheTTL <= 0 {
		missing = append(missing, "Site.ContentCacheTTL")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "Log.Level")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if resolved[trimmed] != "" {
			continue
		}
		missing = append(missing, trimmed)
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
