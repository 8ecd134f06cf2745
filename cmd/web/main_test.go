package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/hanko-seo/internal/config"
	"finitefield.org/hanko-seo/internal/testutil"
)

const testProfile = `
defaults:
  title: Hanko Field
  site: Hanko Field
  twitterSite: "@hankofield"
modifiers:
  title: 'value + " | Hanko Field"'
extensions:
  - name: twitter
    enabled: true
previews:
  flipp:
    page: tmpl123
`

const aboutJA = `---
title: 私たちについて
summary: 手彫りの印鑑をお届けします。
published_at: 2024-03-01
---
# 私たちについて
`

const aboutEN = `---
title: About us
summary: Hand-carved seals, delivered.
---
# About us

![Workshop](/assets/workshop.jpg)
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Server: config.ServerConfig{Port: "0"},
		Site: config.SiteConfig{
			BaseURL:         "https://hanko-field.example",
			ProfilePath:     filepath.Join(dir, "seo.yaml"),
			ContentDir:      filepath.Join(dir, "content"),
			PublicDir:       filepath.Join(dir, "public"),
			ContentCacheTTL: time.Minute,
			DefaultLocale:   "ja",
			Locales:         []string{"ja", "en"},
		},
		Previews: config.PreviewConfig{FlippKey: "flipp-secret"},
	}
	writeFile(t, cfg.Site.ProfilePath, testProfile)
	writeFile(t, filepath.Join(cfg.Site.ContentDir, "ja", "about.md"), aboutJA)
	writeFile(t, filepath.Join(cfg.Site.ContentDir, "en", "about.md"), aboutEN)
	writeFile(t, filepath.Join(cfg.Site.PublicDir, "favicon.png"), "png")
	return cfg
}

func newTestRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	s, err := newServer(cfg, zap.NewNop())
	require.NoError(t, err)
	return s.routes()
}

func get(t *testing.T, h http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzOK(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestHomeUsesProfileDefaults(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Values("Vary"), "Accept-Language")

	doc := testutil.ParseHTML(t, rec.Body.String())
	require.Equal(t, "Hanko Field", doc.Find("title").Text(), "defaults are not modified")
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "ja", lang)

	site, ok := testutil.MetaContent(doc, `meta[property="og:site_name"]`)
	require.True(t, ok)
	require.Equal(t, "Hanko Field", site)
	locale, _ := testutil.MetaContent(doc, `meta[property="og:locale"]`)
	require.Equal(t, "ja_JP", locale)
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	require.Equal(t, "https://hanko-field.example/", canonical)
	card, _ := testutil.MetaContent(doc, `meta[name="twitter:card"]`)
	require.Equal(t, "summary", card)
	ld := doc.Find(`script[type="application/ld+json"]`).Text()
	require.Contains(t, ld, `"@type":"WebSite"`)
	require.Contains(t, ld, `"@type":"Organization"`)
}

func TestPageAppliesContentMetadata(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/pages/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.String())
	require.Equal(t, "私たちについて | Hanko Field", doc.Find("title").Text())
	desc, _ := testutil.MetaContent(doc, `meta[name="description"]`)
	require.Equal(t, "手彫りの印鑑をお届けします。", desc)
	ogType, _ := testutil.MetaContent(doc, `meta[property="og:type"]`)
	require.Equal(t, "article", ogType)
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	require.Equal(t, "https://hanko-field.example/pages/about", canonical)
	require.Equal(t, "2024-03-01", doc.Find("article time").Text())

	image, ok := testutil.MetaContent(doc, `meta[property="og:image"]`)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(image, "https://s.useflipp.com/tmpl123.png?s="), image)
	card, _ := testutil.MetaContent(doc, `meta[name="twitter:card"]`)
	require.Equal(t, "summary_large_image", card)
}

func TestPageEmitsBreadcrumbs(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/pages/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.String())
	var trail map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload map[string]any
		if json.Unmarshal([]byte(sel.Text()), &payload) == nil && payload["@type"] == "BreadcrumbList" {
			trail = payload
			return false
		}
		return true
	})
	require.NotNil(t, trail, "breadcrumb json-ld missing")

	items, ok := trail["itemListElement"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	home := items[0].(map[string]any)
	require.Equal(t, "Home", home["name"])
	require.Equal(t, "https://hanko-field.example/", home["item"])
	require.EqualValues(t, 1, home["position"])
	page := items[1].(map[string]any)
	require.Equal(t, "私たちについて", page["name"])
	require.Equal(t, "https://hanko-field.example/pages/about", page["item"])
	require.EqualValues(t, 2, page["position"])
}

func TestPageNegotiatesLanguage(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/pages/about", map[string]string{"Accept-Language": "en-US,en;q=0.9"})
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.String())
	require.Equal(t, "About us | Hanko Field", doc.Find("title").Text())
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "en", lang)
	locale, _ := testutil.MetaContent(doc, `meta[property="og:locale"]`)
	require.Equal(t, "en_US", locale)
	image, _ := testutil.MetaContent(doc, `meta[property="og:image"]`)
	require.Equal(t, "/assets/workshop.jpg", image)
}

func TestMissingPageRendersNotFound(t *testing.T) {
	h := newTestRouter(t, testConfig(t))
	for _, target := range []string{"/pages/missing", "/no/such/route"} {
		rec := get(t, h, target, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, target)

		doc := testutil.ParseHTML(t, rec.Body.String())
		require.Equal(t, "Not Found | Hanko Field", doc.Find("title").Text(), target)
		robots, ok := testutil.MetaContent(doc, `meta[name="robots"]`)
		require.True(t, ok, target)
		require.Equal(t, "noindex", robots)
	}
}

func TestServesFavicons(t *testing.T) {
	rec := get(t, newTestRouter(t, testConfig(t)), "/favicon.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestMissingProfileFallsBackToEmpty(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Site.ProfilePath))

	core, logs := observer.New(zapcore.WarnLevel)
	s, err := newServer(cfg, zap.New(core))
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("seo profile not found, using empty profile").Len())

	rec := get(t, s.routes(), "/pages/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.String())
	require.Equal(t, "私たちについて", doc.Find("title").Text())
}

func TestInvalidProfileFailsStartup(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Site.ProfilePath, "unknown: true\n")
	_, err := newServer(cfg, zap.NewNop())
	require.Error(t, err)
}
