package seo

import (
	"encoding/json"
	"fmt"
)

// JSONLD adds payload as a <script type="application/ld+json"> head tag under
// "jsonld.<key>". json.Marshal escapes <, > and &, so the payload cannot close
// the script element.
func (m *Manager) JSONLD(key string, payload map[string]any) error {
	if key == "" {
		return fmt.Errorf("seo: json-ld key must not be empty")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("seo: encode json-ld %s: %w", key, err)
	}
	m.RawTag("jsonld."+key, `<script type="application/ld+json">`+string(b)+`</script>`)
	return nil
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// Crumb is one BreadcrumbList entry. URL must be absolute.
type Crumb struct {
	Name string
	URL  string
}

// Breadcrumbs returns a BreadcrumbList schema with positions starting at 1.
func Breadcrumbs(trail ...Crumb) map[string]any {
	items := make([]map[string]any, 0, len(trail))
	for i, c := range trail {
		items = append(items, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     c.Name,
			"item":     c.URL,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
}

// Article builds an Article schema from the resolved page metadata.
func (m *Manager) Article(authorName, datePublished string) map[string]any {
	return Article(m.Get(KeyTitle), m.Get(KeyURL), m.Get(KeyImage), authorName, datePublished)
}

// Article returns a minimal Article schema payload.
func Article(headline, url, imageURL, authorName, datePublished string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Article",
		"headline": headline,
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if authorName != "" {
		m["author"] = map[string]any{"@type": "Person", "name": authorName}
	}
	if datePublished != "" {
		m["datePublished"] = datePublished
	}
	return m
}
