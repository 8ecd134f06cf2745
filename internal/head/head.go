// Package head renders a seo.Manager into the tags of an HTML <head>.
package head

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"go.uber.org/zap"

	"finitefield.org/hanko-seo/internal/seo"
)

// MetaTemplate is the name of the template that renders the full head block.
const MetaTemplate = "seo::meta"

// ErrUnknownView is returned when an enabled extension names a template that
// was never registered.
var ErrUnknownView = errors.New("head: unknown extension view")

//go:embed templates/*.tmpl
var builtin embed.FS

// TemplateResolver renders the view of one extension for m.
type TemplateResolver interface {
	RenderTemplate(name string, m *seo.Manager) (template.HTML, error)
}

// View is the data passed to every head template.
type View struct {
	M      *seo.Manager
	Tags   []template.HTML
	Blocks []template.HTML
}

type source struct {
	name string
	text string
}

type fsSource struct {
	fsys     fs.FS
	patterns []string
}

type options struct {
	sources  []source
	fs       []fsSource
	resolver TemplateResolver
	logger   *zap.Logger
}

// Option customises a Renderer.
type Option func(*options)

// WithTemplate registers an extension view under name.
func WithTemplate(name, text string) Option {
	return func(o *options) {
		o.sources = append(o.sources, source{name: name, text: text})
	}
}

// WithTemplatesFS parses the files matching patterns in fsys. Views are
// addressed by their {{define}} names or, failing that, by file name.
func WithTemplatesFS(fsys fs.FS, patterns ...string) Option {
	return func(o *options) {
		o.fs = append(o.fs, fsSource{fsys: fsys, patterns: patterns})
	}
}

// WithResolver replaces the resolver used for extension views.
func WithResolver(r TemplateResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Renderer renders head markup. It is safe for concurrent use; the parsed
// templates are never executed directly, only per-render clones bound to the
// request's Manager.
type Renderer struct {
	root     *template.Template
	resolver TemplateResolver
	logger   *zap.Logger
}

// New parses the built-in views plus any registered through options.
func New(opts ...Option) (*Renderer, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	root, err := template.New("_root").Funcs(seo.New().FuncMap()).ParseFS(builtin, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("head: parse builtin templates: %w", err)
	}
	for _, src := range o.sources {
		if src.name == "" {
			return nil, fmt.Errorf("head: template name must not be empty")
		}
		if _, err := root.New(src.name).Parse(src.text); err != nil {
			return nil, fmt.Errorf("head: parse template %s: %w", src.name, err)
		}
	}
	for _, src := range o.fs {
		if _, err := root.ParseFS(src.fsys, src.patterns...); err != nil {
			return nil, fmt.Errorf("head: parse templates %v: %w", src.patterns, err)
		}
	}

	r := &Renderer{root: root, resolver: o.resolver, logger: o.logger}
	if r.resolver == nil {
		r.resolver = r
	}
	return r, nil
}

// Render writes the head markup for m to w.
func (r *Renderer) Render(w io.Writer, m *seo.Manager) error {
	exts := m.Extensions()
	blocks := make([]template.HTML, 0, len(exts))
	for _, ext := range exts {
		block, err := r.resolver.RenderTemplate(ext.View, m)
		if err != nil {
			r.logger.Warn("extension view failed",
				zap.String("extension", ext.Name),
				zap.String("view", ext.View),
				zap.Error(err),
			)
			return fmt.Errorf("head: render extension %s: %w", ext.Name, err)
		}
		blocks = append(blocks, block)
	}

	tags := m.Tags()
	view := View{M: m, Tags: make([]template.HTML, 0, len(tags)), Blocks: blocks}
	for _, tag := range tags {
		// Tag escapes its content; RawTag markup is trusted.
		view.Tags = append(view.Tags, template.HTML(tag))
	}

	t, err := r.bind(m)
	if err != nil {
		return err
	}
	if err := t.ExecuteTemplate(w, MetaTemplate, view); err != nil {
		return fmt.Errorf("head: execute %s: %w", MetaTemplate, err)
	}
	return nil
}

// RenderString is Render into a string.
func (r *Renderer) RenderString(m *seo.Manager) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTemplate executes the named view for m.
func (r *Renderer) RenderTemplate(name string, m *seo.Manager) (template.HTML, error) {
	if r.root.Lookup(name) == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownView, name)
	}
	t, err := r.bind(m)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, View{M: m}); err != nil {
		return "", fmt.Errorf("head: execute %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Has reports whether a view named name is registered.
func (r *Renderer) Has(name string) bool {
	return r.root.Lookup(name) != nil
}

func (r *Renderer) bind(m *seo.Manager) (*template.Template, error) {
	t, err := r.root.Clone()
	if err != nil {
		return nil, fmt.Errorf("head: clone templates: %w", err)
	}
	return t.Funcs(m.FuncMap()), nil
}
