package seo

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Service names an external preview-image generator.
type Service string

const (
	Flipp        Service = "flipp"
	Previewify   Service = "previewify"
	PreviewLinks Service = "previewlink"
)

var (
	// ErrUnknownService is returned for services other than the ones above.
	ErrUnknownService = errors.New("seo: unknown preview service")
	// ErrUnknownPreviewTemplate is returned when an alias has no registered template.
	ErrUnknownPreviewTemplate = errors.New("seo: preview template alias not registered")
	// ErrMissingSigningKey is returned when the service key is not configured.
	ErrMissingSigningKey = errors.New("seo: preview signing key not configured")
)

// Field is one entry of a preview payload.
type Field struct {
	Key   string
	Value any
}

// Data is an ordered preview payload. It marshals to a JSON object whose keys
// keep slice order.
type Data []Field

// DataFromMap builds Data from m with keys in sorted order.
func DataFromMap(m map[string]any) Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Data, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Key: k, Value: m[k]})
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalJSON(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := marshalJSON(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type previewService struct {
	// fieldPrefix is prepended to payload keys that do not already carry it.
	fieldPrefix string
	// signTemplate includes the template id in the signed message.
	signTemplate bool
	url          func(template, signature, query string) string
}

var previewServices = map[Service]previewService{
	Flipp: {
		signTemplate: true,
		url: func(template, signature, query string) string {
			return "https://s.useflipp.com/" + template + ".png?s=" + signature + "&v=" + query
		},
	},
	Previewify: {
		fieldPrefix: "previewify:",
		url: func(template, signature, query string) string {
			return "https://previewify.app/generate/templates/" + template + "/signed?signature=" + signature + "&fields=" + query
		},
	},
	PreviewLinks: {
		fieldPrefix: "previewlinks:",
		url: func(template, signature, query string) string {
			return "https://previewlinks.io/generate/templates/" + template + "/signed?signature=" + signature + "&fields=" + query
		},
	},
}

// IsPreviewService reports whether name is a supported preview service.
func IsPreviewService(name string) bool {
	_, ok := previewServices[Service(name)]
	return ok
}

// PreviewTemplate registers templateID for alias under service.
func (m *Manager) PreviewTemplate(service Service, alias, templateID string) *Manager {
	if _, ok := previewServices[service]; !ok || alias == "" {
		return m
	}
	return m.SetMeta(previewTemplatePath(service, alias), templateID)
}

// PreviewTemplates returns the alias to template id registrations of service.
func (m *Manager) PreviewTemplates(service Service) map[string]string {
	out := map[string]string{}
	raw, _ := m.Meta(string(service) + ".templates").(map[string]any)
	for alias, v := range raw {
		if s, ok := v.(string); ok {
			out[alias] = s
		}
	}
	return out
}

// PreviewImage builds the signed image URL for alias, stores it as the
// cover image and returns the resolved image. A nil data uses the raw title
// and description.
func (m *Manager) PreviewImage(service Service, alias string, data Data) (string, error) {
	svc, ok := previewServices[service]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	template, ok := metaString(m.meta, previewTemplatePath(service, alias))
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownPreviewTemplate, service, alias)
	}
	key := m.keys[service]
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingSigningKey, service)
	}
	if data == nil {
		data = Data{
			{Key: KeyTitle, Value: m.Raw(KeyTitle)},
			{Key: KeyDescription, Value: m.Raw(KeyDescription)},
		}
	}
	if svc.fieldPrefix != "" {
		data = prefixFields(data, svc.fieldPrefix)
	}
	payload, err := data.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("seo: encode %s payload: %w", service, err)
	}
	query := base64.StdEncoding.EncodeToString(payload)
	message := query
	if svc.signTemplate {
		message = template + query
	}
	url := svc.url(template, Sign(key, message), query)
	m.logger.Debug("preview image generated",
		zap.String("service", string(service)),
		zap.String("alias", alias),
		zap.String("template", template),
	)
	return m.Set(KeyImage, String(url)), nil
}

// Sign returns the hex HMAC-SHA256 of message under key.
func Sign(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func prefixFields(data Data, prefix string) Data {
	out := make(Data, len(data))
	for i, f := range data {
		if !strings.HasPrefix(f.Key, prefix) {
			f.Key = prefix + f.Key
		}
		out[i] = f
	}
	return out
}

func previewTemplatePath(service Service, alias string) string {
	return string(service) + ".templates." + alias
}
