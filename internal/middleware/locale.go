package middleware

import (
	"net/http"

	"finitefield.org/hanko-seo/internal/i18n"
)

// VaryLocale sets Vary header for Accept-Language on dynamic responses
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}

// Locale negotiates the page language. A supported ?lang= query wins over
// Accept-Language. When a manager is on the context its og:locale is set.
func Locale(n *i18n.Negotiator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.URL.Query().Get("lang")
			if lang == "" || !n.IsSupported(lang) {
				lang = n.Resolve(r.Header.Get("Accept-Language"))
			} else {
				lang = i18n.Base(lang)
			}
			if m, ok := Manager(r.Context()); ok {
				if locale := i18n.OGLocale(lang); locale != "" {
					m.Locale(locale)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}
