// Package i18n negotiates the page language and maps it to Open Graph locales.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Negotiator picks one of the supported languages for a request.
type Negotiator struct {
	fallback  string
	supported []string
	index     map[string]struct{}
}

// NewNegotiator returns a negotiator over supported. The fallback is always
// supported; an empty fallback becomes the first supported language, or "ja".
func NewNegotiator(fallback string, supported []string) *Negotiator {
	n := &Negotiator{index: map[string]struct{}{}}
	for _, l := range supported {
		l = Base(l)
		if l == "" {
			continue
		}
		if _, ok := n.index[l]; ok {
			continue
		}
		n.index[l] = struct{}{}
		n.supported = append(n.supported, l)
	}
	fallback = Base(fallback)
	if fallback == "" {
		if len(n.supported) > 0 {
			fallback = n.supported[0]
		} else {
			fallback = "ja"
		}
	}
	if _, ok := n.index[fallback]; !ok {
		n.index[fallback] = struct{}{}
		n.supported = append(n.supported, fallback)
	}
	n.fallback = fallback
	return n
}

// Supported returns the languages in configuration order.
func (n *Negotiator) Supported() []string {
	out := make([]string, len(n.supported))
	copy(out, n.supported)
	return out
}

// Fallback returns the configured fallback language.
func (n *Negotiator) Fallback() string { return n.fallback }

// IsSupported reports whether lang (or its base language) is supported.
func (n *Negotiator) IsSupported(lang string) bool {
	_, ok := n.index[Base(lang)]
	return ok
}

// Resolve chooses the best supported base language from an Accept-Language
// header, honouring q-values and falling back when nothing matches.
func (n *Negotiator) Resolve(acceptLang string) string {
	if strings.TrimSpace(acceptLang) == "" {
		return n.fallback
	}
	tags, weights, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil {
		return n.fallback
	}
	for i, tag := range tags {
		if weights[i] <= 0 {
			continue
		}
		base, _ := tag.Base()
		if n.IsSupported(base.String()) {
			return base.String()
		}
	}
	return n.fallback
}

// OGLocale converts a language tag into the ll_RR form used by og:locale.
// Languages without a region get the most likely one ("ja" becomes "ja_JP").
func OGLocale(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == language.No || region.String() == "ZZ" {
		return base.String()
	}
	return base.String() + "_" + region.String()
}

// Base lowercases lang and strips any region or script subtag.
func Base(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i != -1 {
		lang = lang[:i]
	}
	return lang
}
