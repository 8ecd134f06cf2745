package seo

import (
	"strings"

	"github.com/stoewer/go-strcase"
)

// Well-known keys. They are always part of All, even when unset.
const (
	KeySite               = "site"
	KeyTitle              = "title"
	KeyImage              = "image"
	KeyDescription        = "description"
	KeyURL                = "url"
	KeyType               = "type"
	KeyLocale             = "locale"
	KeyKeywords           = "keywords"
	KeyTwitterCreator     = "twitter.creator"
	KeyTwitterSite        = "twitter.site"
	KeyTwitterTitle       = "twitter.title"
	KeyTwitterImage       = "twitter.image"
	KeyTwitterDescription = "twitter.description"
)

// Reserved extension names.
const (
	ExtensionTwitter = "twitter"
	ExtensionFavicon = "favicon"
)

var wellKnownKeys = []string{
	KeySite, KeyTitle, KeyImage, KeyDescription, KeyURL, KeyType, KeyLocale,
	KeyTwitterCreator, KeyTwitterSite, KeyTwitterTitle, KeyTwitterImage, KeyTwitterDescription,
}

// WellKnownKeys returns a copy of the keys every render asks for.
func WellKnownKeys() []string {
	out := make([]string, len(wellKnownKeys))
	copy(out, wellKnownKeys)
	return out
}

// DotKey converts an accessor name such as "twitterTitle" into the dotted
// key "twitter.title". Names that are already dotted are returned as-is and
// existing underscores are kept, so "og_image" stays "og_image".
func DotKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ".") {
		return name
	}
	parts := strings.Split(name, "_")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(strcase.SnakeCase(part), "_", ".")
	}
	return strings.Join(parts, "_")
}

// splitKey returns the first segment of a dotted key and the remainder.
func splitKey(key string) (prefix, rest string, dotted bool) {
	return strings.Cut(key, ".")
}
