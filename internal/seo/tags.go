package seo

import (
	"html"
	"strings"
)

// Tag adds <meta property="property" content="content">, replacing any tag
// previously added for the same property. Content is HTML-escaped.
func (m *Manager) Tag(property, content string) *Manager {
	markup := `<meta property="` + html.EscapeString(property) + `" content="` + html.EscapeString(content) + `">`
	return m.RawTag(metaTagKey(property), markup)
}

// RawTag stores literal markup under key. An empty markup registers key
// itself. Later calls with the same key replace the markup in place.
func (m *Manager) RawTag(key, markup string) *Manager {
	if markup == "" {
		markup = key
	}
	if strings.TrimSpace(markup) == "" {
		return m
	}
	if _, ok := m.tags[key]; !ok {
		m.tagOrder = append(m.tagOrder, key)
	}
	m.tags[key] = markup
	return m
}

// Tags returns the registered markup in insertion order.
func (m *Manager) Tags() []string {
	out := make([]string, 0, len(m.tagOrder))
	for _, k := range m.tagOrder {
		out = append(out, m.tags[k])
	}
	return out
}

// HasRawTag reports whether markup exists under key.
func (m *Manager) HasRawTag(key string) bool {
	_, ok := m.tags[key]
	return ok
}

// HasTag reports whether Tag was called for property.
func (m *Manager) HasTag(property string) bool {
	return m.HasRawTag(metaTagKey(property))
}

func metaTagKey(property string) string {
	return "meta." + property
}
