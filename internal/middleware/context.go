package middleware

import (
	"context"

	"finitefield.org/hanko-seo/internal/seo"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyManager ctxKey = "seo_manager"
	ctxKeyLang    ctxKey = "lang"
)

// WithManager stores the request's metadata manager in context.
func WithManager(ctx context.Context, m *seo.Manager) context.Context {
	return context.WithValue(ctx, ctxKeyManager, m)
}

// Manager returns the request's metadata manager, if any.
func Manager(ctx context.Context) (*seo.Manager, bool) {
	m, ok := ctx.Value(ctxKeyManager).(*seo.Manager)
	return m, ok && m != nil
}

// WithLang stores the negotiated language in context.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKeyLang, lang)
}

// Lang returns the negotiated language or "" when none was set.
func Lang(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyLang).(string)
	return v
}
