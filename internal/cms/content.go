// Package cms reads localized markdown pages and derives their head metadata.
package cms

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no language variant of a page exists.
var ErrNotFound = errors.New("cms: not found")

// Page is a localized page sourced from local markdown.
type Page struct {
	Slug        string
	Lang        string
	Title       string
	Summary     string
	Author      string
	Body        string
	PublishedAt time.Time
	UpdatedAt   time.Time
	SEO         PageSEO
}

// PageSEO holds optional metadata overrides for a page.
type PageSEO struct {
	Title       string
	Description string
	Image       string
	Keywords    string
	Type        string
}

type frontMatter struct {
	Title       string         `yaml:"title"`
	Summary     string         `yaml:"summary"`
	Lang        string         `yaml:"lang"`
	Author      string         `yaml:"author"`
	PublishedAt string         `yaml:"published_at"`
	UpdatedAt   string         `yaml:"updated_at"`
	SEO         frontMatterSEO `yaml:"seo"`
}

type frontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Keywords    string `yaml:"keywords"`
	Type        string `yaml:"type"`
}

const (
	defaultContentDir = "content"
	defaultCacheTTL   = 5 * time.Minute
)

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Store serves pages from <dir>/<lang>/<slug>.md with an in-memory TTL cache.
type Store struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	meter   metric.Meter
	metrics storeMetrics

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// Option customises a Store.
type Option func(*Store)

// WithCacheTTL overrides how long pages stay cached.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) {
		if d <= 0 {
			d = time.Minute
		}
		s.ttl = d
	}
}

// WithLogger sets the logger used for parse failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMeter sets the OpenTelemetry meter; the global provider is used otherwise.
func WithMeter(m metric.Meter) Option {
	return func(s *Store) {
		s.meter = m
	}
}

// NewStore returns a Store rooted at dir ("content" when blank).
func NewStore(dir string, opts ...Option) *Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	s := &Store{
		dir:    dir,
		ttl:    defaultCacheTTL,
		now:    time.Now,
		logger: zap.NewNop(),
		items:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.metrics = newStoreMetrics(s.meter, s.logger)
	return s
}

// Dir returns the content root.
func (s *Store) Dir() string { return s.dir }

// Page returns the page for slug in lang, falling back to English and then
// Japanese variants.
func (s *Store) Page(ctx context.Context, slug, lang string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = normalizeLang(lang)

	cacheKey := lang + "|" + slug
	if page, ok := s.cached(cacheKey); ok {
		s.metrics.lookup(ctx, lang, outcomeHit)
		return page, nil
	}
	start := time.Now()
	page, err := s.fallback(slug, lang)
	s.metrics.load(ctx, lang, time.Since(start))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.lookup(ctx, lang, outcomeNotFound)
		} else {
			s.metrics.lookup(ctx, lang, outcomeError)
			s.logger.Warn("cms page failed", zap.String("slug", slug), zap.String("lang", lang), zap.Error(err))
		}
		return Page{}, err
	}
	s.metrics.lookup(ctx, lang, outcomeMiss)
	s.store(cacheKey, page)
	return page, nil
}

// Invalidate drops every cached page.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = map[string]cacheEntry{}
}

func (s *Store) fallback(slug, lang string) (Page, error) {
	priority := []string{lang}
	if lang != "en" {
		priority = append(priority, "en")
	}
	if lang != "ja" {
		priority = append(priority, "ja")
	}
	for _, candidate := range priority {
		page, err := readMarkdown(s.dir, slug, candidate)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		// Parse errors stop the search.
		return Page{}, err
	}
	return Page{}, ErrNotFound
}

func readMarkdown(dir, slug, lang string) (Page, error) {
	file := filepath.Join(dir, lang, slug+".md")
	// #nosec G304 -- slug is sanitised and lang normalised before joining
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}
	page := Page{
		Slug:    slug,
		Lang:    firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Author:  strings.TrimSpace(front.Author),
		Body:    body,
		SEO: PageSEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			Image:       strings.TrimSpace(front.SEO.Image),
			Keywords:    strings.TrimSpace(front.SEO.Keywords),
			Type:        strings.TrimSpace(front.SEO.Type),
		},
		PublishedAt: parseDate(front.PublishedAt),
		UpdatedAt:   parseDate(front.UpdatedAt),
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02", "2006-1-2"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.Trim(slug, "/")
	if slug == "" || strings.Contains(slug, "..") {
		return ""
	}
	if strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || strings.ContainsAny(lang, `./\`) {
		return "ja"
	}
	return lang
}

func (s *Store) cached(key string) (Page, bool) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = cacheEntry{page: page, expires: s.now().Add(s.ttl)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
