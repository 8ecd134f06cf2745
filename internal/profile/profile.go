// Package profile loads the site-wide SEO profile and applies it to every
// request's seo.Manager.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"finitefield.org/hanko-seo/internal/seo"
)

// Extension declares one extension in profile order.
type Extension struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	View    string `yaml:"view,omitempty"`
}

// Profile is the decoded profile document.
//
//	defaults:
//	  title: Hanko Field
//	modifiers:
//	  title: 'value + " | Hanko Field"'
//	extensions:
//	  - name: twitter
//	    enabled: true
//	previews:
//	  flipp:
//	    blog: 8c1d2e
type Profile struct {
	Defaults   map[string]string            `yaml:"defaults"`
	Modifiers  map[string]string            `yaml:"modifiers"`
	Extensions []Extension                  `yaml:"extensions"`
	Previews   map[string]map[string]string `yaml:"previews"`

	programs map[string]*exprvm.Program
	logger   *zap.Logger
}

// Option customises a Profile.
type Option func(*Profile)

// WithLogger sets the logger used for modifier failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Profile) {
		if l != nil {
			p.logger = l
		}
	}
}

// Load reads and compiles the profile at path.
func Load(path string, opts ...Option) (*Profile, error) {
	// #nosec G304 -- the profile path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	p, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and compiles a profile document. Unknown fields are rejected.
func Parse(data []byte, opts ...Option) (*Profile, error) {
	p := &Profile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if err := p.Compile(); err != nil {
		return nil, err
	}
	return p, nil
}

// Compile validates the profile and compiles its modifier expressions.
// Apply compiles lazily when Compile was not called.
func (p *Profile) Compile() error {
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	programs := make(map[string]*exprvm.Program, len(p.Modifiers))
	for _, key := range sortedKeys(p.Modifiers) {
		program, err := compileModifier(p.Modifiers[key])
		if err != nil {
			return fmt.Errorf("modifier %s: %w", key, err)
		}
		programs[seo.DotKey(key)] = program
	}
	for i, ext := range p.Extensions {
		if ext.Name == "" {
			return fmt.Errorf("extension %d: name must not be empty", i)
		}
	}
	for service := range p.Previews {
		if !seo.IsPreviewService(service) {
			return fmt.Errorf("previews: %w: %s", seo.ErrUnknownService, service)
		}
	}
	p.programs = programs
	return nil
}

// Apply registers the profile's extensions, defaults, modifiers and preview
// templates on m.
func (p *Profile) Apply(m *seo.Manager) *seo.Manager {
	if p == nil || m == nil {
		return m
	}
	if p.programs == nil && len(p.Modifiers) > 0 {
		if err := p.Compile(); err != nil {
			p.logger.Error("profile compile failed", zap.Error(err))
			return m
		}
	}
	for _, ext := range p.Extensions {
		m.Extension(ext.Name, ext.Enabled, seo.WithView(ext.View))
	}
	for _, key := range sortedKeys(p.Defaults) {
		m.SetDefault(seo.DotKey(key), seo.String(p.Defaults[key]))
	}
	for key, program := range p.programs {
		m.Modify(key, p.modifier(key, program))
	}
	for service, templates := range p.Previews {
		for alias, id := range templates {
			m.PreviewTemplate(seo.Service(service), alias, id)
		}
	}
	return m
}

func (p *Profile) modifier(key string, program *exprvm.Program) seo.Modifier {
	return func(value string) string {
		out, err := exprlang.Run(program, env(value))
		if err != nil {
			p.logger.Warn("profile modifier failed",
				zap.String("key", key),
				zap.Error(err),
			)
			return value
		}
		s, ok := out.(string)
		if !ok {
			return value
		}
		return s
	}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
