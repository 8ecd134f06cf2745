// Package seo accumulates page metadata during a request and exposes it to the
// head renderer.
//
// A Manager is created per request, mutated by handlers, read once when the
// layout renders and then discarded. It is not safe for concurrent use.
package seo

import (
	"sort"

	"go.uber.org/zap"
)

// Modifier rewrites a user-set value at read time. Defaults are never modified.
type Modifier func(string) string

// Manager is the request-scoped metadata store.
type Manager struct {
	values    map[string]Value
	defaults  map[string]Value
	modifiers map[string]Modifier

	extOrder []string
	extOn    map[string]bool

	meta map[string]any

	tagOrder []string
	tags     map[string]string

	keys   map[Service]string
	logger *zap.Logger
}

// Option customises Manager construction.
type Option func(*Manager)

// WithSigningKeys supplies the HMAC keys used for signed preview links.
func WithSigningKeys(keys map[Service]string) Option {
	return func(m *Manager) {
		for svc, key := range keys {
			if key != "" {
				m.keys[svc] = key
			}
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New constructs an empty Manager with the twitter and favicon extensions
// declared and disabled.
func New(opts ...Option) *Manager {
	m := &Manager{
		values:    map[string]Value{},
		defaults:  map[string]Value{},
		modifiers: map[string]Modifier{},
		extOn:     map[string]bool{},
		meta:      map[string]any{},
		tags:      map[string]string{},
		keys:      map[Service]string{},
		logger:    zap.NewNop(),
	}
	m.declare(ExtensionTwitter, false)
	m.declare(ExtensionFavicon, false)
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Set stores value under key and returns the resolved value. A dotted key
// enables the extension named by its first segment.
func (m *Manager) Set(key string, value Value) string {
	m.values[key] = value
	if prefix, _, dotted := splitKey(key); dotted {
		m.Extension(prefix, true)
	}
	return m.Get(key)
}

// SetMany sets every entry and returns the resolved values of the keys set.
// Entries are applied in key order.
func (m *Manager) SetMany(values map[string]Value) map[string]string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, values[k])
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = m.Get(k)
	}
	return out
}

// SetDefault registers the fallback for key. Null removes it.
func (m *Manager) SetDefault(key string, value Value) *Manager {
	if value.IsNull() {
		delete(m.defaults, key)
		return m
	}
	m.defaults[key] = value
	return m
}

// Modify registers fn for key. A nil fn removes the modifier.
func (m *Manager) Modify(key string, fn Modifier) *Manager {
	if fn == nil {
		delete(m.modifiers, key)
		return m
	}
	m.modifiers[key] = fn
	return m
}

// Get resolves key, returning "" when nothing resolves.
func (m *Manager) Get(key string) string {
	v, _ := m.Lookup(key)
	return v
}

// Lookup resolves key: a set value (through its modifier), then the default,
// then the key with its first segment stripped.
func (m *Manager) Lookup(key string) (string, bool) {
	if v, ok := m.values[key].Resolve(); ok {
		if fn := m.modifiers[key]; fn != nil {
			return fn(v), true
		}
		return v, true
	}
	return m.fallback(key)
}

// Raw resolves key like Get but never applies the modifier of a set value.
func (m *Manager) Raw(key string) string {
	v, _ := m.RawLookup(key)
	return v
}

// RawLookup is the two-value form of Raw.
func (m *Manager) RawLookup(key string) (string, bool) {
	if v, ok := m.values[key].Resolve(); ok {
		return v, true
	}
	return m.fallback(key)
}

func (m *Manager) fallback(key string) (string, bool) {
	if v, ok := m.defaults[key].Resolve(); ok {
		return v, true
	}
	if _, rest, dotted := splitKey(key); dotted {
		return m.Lookup(rest)
	}
	return "", false
}

// Keys lists the keys reported by All: well-known keys, then defaults, then
// set values, without keys gated by a disabled or undeclared extension.
func (m *Manager) Keys() []string {
	seen := make(map[string]struct{}, len(wellKnownKeys)+len(m.defaults)+len(m.values))
	out := make([]string, 0, len(wellKnownKeys))
	add := func(k string) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		if m.visible(k) {
			out = append(out, k)
		}
	}
	for _, k := range wellKnownKeys {
		add(k)
	}
	for _, k := range sortedKeys(m.defaults) {
		add(k)
	}
	for _, k := range sortedKeys(m.values) {
		add(k)
	}
	return out
}

// All resolves every key in Keys.
func (m *Manager) All() map[string]string {
	keys := m.Keys()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = m.Get(k)
	}
	return out
}

func (m *Manager) visible(key string) bool {
	prefix, _, dotted := splitKey(key)
	if !dotted {
		return true
	}
	return m.extOn[prefix]
}

func sortedKeys(values map[string]Value) []string {
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
