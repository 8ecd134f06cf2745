package seo

// Request configures one key in a single call. Zero fields are ignored.
type Request struct {
	Key      string
	Value    Value
	Default  Value
	Modifier Modifier
	// Disable turns an extension off when the request targets one through
	// Dispatch.
	Disable bool
}

func (r Request) empty() bool {
	return r.Value.IsNull() && r.Default.IsNull() && r.Modifier == nil && !r.Disable
}

// Configure registers the default, the modifier and then the value of
// req.Key, each only when present.
func (m *Manager) Configure(req Request) *Manager {
	if req.Key == "" {
		return m
	}
	if !req.Default.IsNull() {
		m.SetDefault(req.Key, req.Default)
	}
	if req.Modifier != nil {
		m.Modify(req.Key, req.Modifier)
	}
	if !req.Value.IsNull() {
		m.Set(req.Key, req.Value)
	}
	return m
}

// Dispatch handles an accessor by name, the way templates and config files
// address keys. A declared extension name toggles the extension. Any other
// name is converted with DotKey; an empty request reads the key, anything
// else configures it. The returned value is the key's resolution after the
// call, or "" for extension toggles.
func (m *Manager) Dispatch(name string, req Request) (string, bool) {
	if m.IsDeclared(name) {
		m.Extension(name, !req.Disable)
		return "", false
	}
	key := DotKey(name)
	if req.empty() {
		return m.Lookup(key)
	}
	req.Key = key
	m.Configure(req)
	return m.Lookup(key)
}

func (m *Manager) setString(key, value string) *Manager {
	m.Set(key, String(value))
	return m
}

// Title sets the page title.
func (m *Manager) Title(v string) *Manager { return m.setString(KeyTitle, v) }

// Description sets the page description.
func (m *Manager) Description(v string) *Manager { return m.setString(KeyDescription, v) }

// Keywords sets the keywords meta tag.
func (m *Manager) Keywords(v string) *Manager { return m.setString(KeyKeywords, v) }

// URL sets the canonical URL.
func (m *Manager) URL(v string) *Manager { return m.setString(KeyURL, v) }

// Site sets the site name.
func (m *Manager) Site(v string) *Manager { return m.setString(KeySite, v) }

// Image sets the cover image.
func (m *Manager) Image(v string) *Manager { return m.setString(KeyImage, v) }

// Type sets og:type.
func (m *Manager) Type(v string) *Manager { return m.setString(KeyType, v) }

// Locale sets og:locale.
func (m *Manager) Locale(v string) *Manager { return m.setString(KeyLocale, v) }

// TwitterCreator sets twitter:creator.
func (m *Manager) TwitterCreator(v string) *Manager { return m.setString(KeyTwitterCreator, v) }

// TwitterSite sets twitter:site.
func (m *Manager) TwitterSite(v string) *Manager { return m.setString(KeyTwitterSite, v) }

// TwitterTitle sets twitter:title.
func (m *Manager) TwitterTitle(v string) *Manager { return m.setString(KeyTwitterTitle, v) }

// TwitterDescription sets twitter:description.
func (m *Manager) TwitterDescription(v string) *Manager {
	return m.setString(KeyTwitterDescription, v)
}

// TwitterImage sets twitter:image.
func (m *Manager) TwitterImage(v string) *Manager { return m.setString(KeyTwitterImage, v) }

// Twitter toggles the twitter extension.
func (m *Manager) Twitter(enabled bool) *Manager {
	return m.Extension(ExtensionTwitter, enabled)
}

// Favicon enables the favicon extension.
func (m *Manager) Favicon() *Manager {
	return m.Extension(ExtensionFavicon, true)
}

// WithURL sets the canonical URL from the current request URL. Canonical tags
// are only emitted once a URL is set.
func (m *Manager) WithURL(requestURL string) *Manager {
	if requestURL == "" {
		return m
	}
	return m.URL(requestURL)
}
