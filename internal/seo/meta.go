package seo

import (
	"sort"
	"strings"
)

// Meta returns the value stored at the dot-separated path, or nil.
func (m *Manager) Meta(path string) any {
	return metaGet(m.meta, path)
}

// SetMeta stores value at the dot-separated path, creating intermediate maps
// and replacing non-map intermediates.
func (m *Manager) SetMeta(path string, value any) *Manager {
	if strings.TrimSpace(path) == "" {
		return m
	}
	if m.meta == nil {
		m.meta = map[string]any{}
	}
	metaSet(m.meta, path, value)
	return m
}

// SetMetas stores each entry with SetMeta, in key order.
func (m *Manager) SetMetas(values map[string]any) *Manager {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.SetMeta(k, values[k])
	}
	return m
}

func metaGet(bag map[string]any, path string) any {
	if bag == nil || path == "" {
		return nil
	}
	var cur any = bag
	for _, seg := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := node[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func metaSet(bag map[string]any, path string, value any) {
	segs := strings.Split(path, ".")
	node := bag
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = normalizeMetaValue(value)
}

// normalizeMetaValue copies map values so later writes through dotted paths
// do not alias caller-owned maps.
func normalizeMetaValue(value any) any {
	switch t := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = normalizeMetaValue(v)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = v
		}
		return out
	default:
		return value
	}
}

func metaString(bag map[string]any, path string) (string, bool) {
	v, ok := metaGet(bag, path).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
