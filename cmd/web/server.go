package main

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"finitefield.org/hanko-seo/internal/cms"
	"finitefield.org/hanko-seo/internal/config"
	"finitefield.org/hanko-seo/internal/head"
	"finitefield.org/hanko-seo/internal/i18n"
	mw "finitefield.org/hanko-seo/internal/middleware"
	"finitefield.org/hanko-seo/internal/observability"
	"finitefield.org/hanko-seo/internal/profile"
	"finitefield.org/hanko-seo/internal/seo"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// previewAlias is the preview template used for pages without a cover image.
const previewAlias = "page"

type server struct {
	cfg     config.Config
	logger  *zap.Logger
	profile *profile.Profile
	head    *head.Renderer
	pages   *cms.Store
	langs   *i18n.Negotiator
	layout  *template.Template
}

// pageData is the layout view model.
type pageData struct {
	Lang    string
	Head    template.HTML
	Page    *cms.Page
	Body    template.HTML
	Heading string
	Message string
}

func newServer(cfg config.Config, logger *zap.Logger) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	prof, err := profile.Load(cfg.Site.ProfilePath, profile.WithLogger(logger.Named("profile")))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("seo profile not found, using empty profile", zap.String("path", cfg.Site.ProfilePath))
		prof = &profile.Profile{}
	case err != nil:
		return nil, err
	}

	renderer, err := head.New(head.WithLogger(logger.Named("head")))
	if err != nil {
		return nil, err
	}

	layout, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	return &server{
		cfg:     cfg,
		logger:  logger,
		profile: prof,
		head:    renderer,
		pages: cms.NewStore(cfg.Site.ContentDir,
			cms.WithCacheTTL(cfg.Site.ContentCacheTTL),
			cms.WithLogger(logger.Named("cms")),
			cms.WithMeter(otel.GetMeterProvider().Meter("finitefield.org/hanko-seo/cmd/web")),
		),
		langs:  i18n.NewNegotiator(cfg.Site.DefaultLocale, cfg.Site.Locales),
		layout: layout,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(s.cfg.Log.ProjectID))
	r.Use(observability.InjectLoggerMiddleware(s.logger))
	r.Use(observability.RequestLoggerMiddleware)
	r.Use(observability.RecoveryMiddleware)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	public := mw.PublicFiles(s.cfg.Site.PublicDir)
	r.Handle("/assets/*", public)
	r.Handle("/favicon.ico", public)
	r.Handle("/favicon.png", public)

	r.Group(func(r chi.Router) {
		r.Use(mw.SEO(mw.SEOOptions{
			BaseURL:     s.cfg.Site.BaseURL,
			Profile:     s.profile,
			SigningKeys: s.cfg.Previews.SigningKeys(),
		}))
		r.Use(mw.Locale(s.langs))
		r.Use(mw.VaryLocale)

		r.Get("/", s.handleHome)
		r.Get("/pages/{slug}", s.handlePage)
		r.NotFound(s.handleNotFound)
	})
	return r
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	m := manager(r)
	name := m.Get(seo.KeySite)
	if name == "" {
		name = "Home"
	}
	if base := s.cfg.Site.BaseURL; base != "" {
		logger := observability.FromContext(r.Context())
		if err := m.JSONLD("website", seo.WebSite(name, base+"/", "")); err != nil {
			logger.Warn("json-ld failed", zap.Error(err))
		}
		if err := m.JSONLD("organization", seo.Organization(name, base+"/", "")); err != nil {
			logger.Warn("json-ld failed", zap.Error(err))
		}
	}
	s.render(w, r, http.StatusOK, pageData{Heading: name})
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	page, err := s.pages.Page(ctx, chi.URLParam(r, "slug"), mw.Lang(ctx))
	if errors.Is(err, cms.ErrNotFound) {
		s.handleNotFound(w, r)
		return
	}
	if err != nil {
		logger.Error("load page failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	m := manager(r)
	if err := page.Apply(m); err != nil {
		logger.Warn("apply page metadata failed", zap.String("slug", page.Slug), zap.Error(err))
	}
	if base := s.cfg.Site.BaseURL; base != "" {
		trail := seo.Breadcrumbs(
			seo.Crumb{Name: "Home", URL: base + "/"},
			seo.Crumb{Name: page.Title, URL: base + "/pages/" + page.Slug},
		)
		if err := m.JSONLD("breadcrumb", trail); err != nil {
			logger.Warn("json-ld failed", zap.String("slug", page.Slug), zap.Error(err))
		}
	}
	if page.Image() == "" {
		if _, err := m.PreviewImage(seo.Flipp, previewAlias, nil); err != nil {
			logger.Debug("no preview image", zap.Error(err))
		}
	}

	body, err := page.HTML()
	if err != nil {
		logger.Error("render markdown failed", zap.String("slug", page.Slug), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, pageData{Lang: page.Lang, Page: &page, Body: body})
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	m := manager(r)
	m.Title("Not Found")
	m.RawTag("robots", `<meta name="robots" content="noindex">`)
	s.render(w, r, http.StatusNotFound, pageData{
		Heading: "Not Found",
		Message: "The page you are looking for does not exist.",
	})
}

// render writes the layout with the request's head markup.
func (s *server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	logger := observability.FromContext(r.Context())

	headHTML, err := s.head.RenderString(manager(r))
	if err != nil {
		logger.Error("render head failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data.Head = template.HTML(headHTML)
	if data.Lang == "" {
		data.Lang = mw.Lang(r.Context())
	}

	var buf bytes.Buffer
	if err := s.layout.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("render layout failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// manager returns the request's metadata manager. Routes outside the SEO
// group get a bare one.
func manager(r *http.Request) *seo.Manager {
	if m, ok := mw.Manager(r.Context()); ok {
		return m
	}
	return seo.New()
}

