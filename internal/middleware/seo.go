package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/hanko-seo/internal/observability"
	"finitefield.org/hanko-seo/internal/profile"
	"finitefield.org/hanko-seo/internal/seo"
)

// SEOOptions configures the SEO middleware.
type SEOOptions struct {
	// BaseURL prefixes request paths to form the canonical URL. When empty the
	// request's own scheme and host are used.
	BaseURL     string
	Profile     *profile.Profile
	SigningKeys map[seo.Service]string
}

// SEO creates a fresh metadata manager for every request, applies the site
// profile and the canonical URL, and stores it in context.
func SEO(opts SEOOptions) func(http.Handler) http.Handler {
	base := strings.TrimRight(opts.BaseURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			m := seo.New(
				seo.WithSigningKeys(opts.SigningKeys),
				seo.WithLogger(logger.With(zap.String("component", "seo"))),
			)
			if opts.Profile != nil {
				opts.Profile.Apply(m)
			}
			m.WithURL(canonicalURL(base, r))
			next.ServeHTTP(w, r.WithContext(WithManager(r.Context(), m)))
		})
	}
}

func canonicalURL(base string, r *http.Request) string {
	if base == "" {
		if r.Host == "" {
			return ""
		}
		scheme := "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	return base + path
}
