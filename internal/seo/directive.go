package seo

import (
	"fmt"
	"html"
	"html/template"
	"sort"
	"strconv"
)

// FuncMap exposes the directive as the "seo" function for html/template.
// Values are returned unescaped there because html/template escapes them for
// the context they land in.
func (m *Manager) FuncMap() template.FuncMap {
	return template.FuncMap{
		"seo": func(args ...any) (string, error) {
			return m.directive(false, args)
		},
	}
}

// Render is the template directive:
//
//	seo "title"                      read, escaped
//	seo "title" "Blog"               set and return, escaped
//	seo (dict ...)                   batch set, returns ""
//	seo "flipp" "blog" [data|id]     preview integrations, unescaped URL
//
// Only the preview integrations return unescaped output, since they produce
// URLs built from base64 and hex. Map payloads are signed in sorted-key
// order; pass a Data value to control field order.
func (m *Manager) Render(args ...any) (string, error) {
	return m.directive(true, args)
}

func (m *Manager) directive(escape bool, args []any) (string, error) {
	esc := func(s string) string { return s }
	if escape {
		esc = html.EscapeString
	}
	if len(args) == 0 {
		return "", fmt.Errorf("seo: directive needs at least one argument")
	}
	if name, ok := args[0].(string); ok && IsPreviewService(name) {
		return m.renderPreview(Service(name), args[1:])
	}
	switch len(args) {
	case 1:
		switch v := args[0].(type) {
		case string:
			return esc(m.Get(v)), nil
		case map[string]any:
			return "", m.renderBatch(v)
		case map[string]string:
			batch := make(map[string]any, len(v))
			for k, s := range v {
				batch[k] = s
			}
			return "", m.renderBatch(batch)
		default:
			return "", fmt.Errorf("seo: unsupported directive argument %T", args[0])
		}
	case 2:
		key, ok := args[0].(string)
		if !ok {
			return "", fmt.Errorf("seo: directive key must be a string, got %T", args[0])
		}
		return esc(m.Set(key, ValueOf(args[1]))), nil
	default:
		return "", fmt.Errorf("seo: directive takes one or two arguments, got %d", len(args))
	}
}

func (m *Manager) renderBatch(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if IsPreviewService(k) {
			args, ok := v.([]any)
			if !ok {
				args = []any{v}
			}
			if _, err := m.renderPreview(Service(k), args); err != nil {
				return err
			}
			continue
		}
		m.Set(k, ValueOf(v))
	}
	return nil
}

func (m *Manager) renderPreview(service Service, args []any) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("seo: %s needs a template alias", service)
	}
	alias, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("seo: %s alias must be a string, got %T", service, args[0])
	}
	if len(args) == 1 {
		return m.PreviewImage(service, alias, nil)
	}
	switch v := args[1].(type) {
	case nil:
		return m.PreviewImage(service, alias, nil)
	case string:
		m.PreviewTemplate(service, alias, v)
		return "", nil
	case int:
		m.PreviewTemplate(service, alias, strconv.Itoa(v))
		return "", nil
	case Data:
		return m.PreviewImage(service, alias, v)
	case map[string]any:
		return m.PreviewImage(service, alias, DataFromMap(v))
	case map[string]string:
		data := make(map[string]any, len(v))
		for k, s := range v {
			data[k] = s
		}
		return m.PreviewImage(service, alias, DataFromMap(data))
	default:
		return "", fmt.Errorf("seo: unsupported %s data %T", service, args[1])
	}
}
