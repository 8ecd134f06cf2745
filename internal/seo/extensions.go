package seo

// ExtensionView pairs an enabled extension with the template that renders it.
type ExtensionView struct {
	Name string
	View string
}

// ExtensionOption customises Extension.
type ExtensionOption func(m *Manager, name string)

// WithView records the template used to render the extension.
func WithView(view string) ExtensionOption {
	return func(m *Manager, name string) {
		if view != "" {
			m.SetMeta("extensions."+name+".view", view)
		}
	}
}

// Extension declares name (when new) and sets its enabled flag.
func (m *Manager) Extension(name string, enabled bool, opts ...ExtensionOption) *Manager {
	if name == "" {
		return m
	}
	m.declare(name, enabled)
	for _, opt := range opts {
		if opt != nil {
			opt(m, name)
		}
	}
	return m
}

// IsDeclared reports whether name is a known extension, enabled or not.
func (m *Manager) IsDeclared(name string) bool {
	_, ok := m.extOn[name]
	return ok
}

// IsEnabled reports whether the extension is currently on.
func (m *Manager) IsEnabled(name string) bool {
	return m.extOn[name]
}

// Extensions lists enabled extensions in declaration order. The view defaults
// to "seo::extensions.<name>".
func (m *Manager) Extensions() []ExtensionView {
	out := make([]ExtensionView, 0, len(m.extOrder))
	for _, name := range m.extOrder {
		if !m.extOn[name] {
			continue
		}
		view, ok := metaString(m.meta, "extensions."+name+".view")
		if !ok {
			view = DefaultView(name)
		}
		out = append(out, ExtensionView{Name: name, View: view})
	}
	return out
}

// DefaultView is the conventional template name of an extension.
func DefaultView(name string) string {
	return "seo::extensions." + name
}

func (m *Manager) declare(name string, enabled bool) {
	if _, ok := m.extOn[name]; !ok {
		m.extOrder = append(m.extOrder, name)
	}
	m.extOn[name] = enabled
}
