package cms

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	nethtml "golang.org/x/net/html"

	"finitefield.org/hanko-seo/internal/seo"
)

// ExcerptLength is the rune limit of derived descriptions.
const ExcerptLength = 160

var (
	markdown   = goldmark.New(goldmark.WithExtensions(extension.GFM))
	bodyPolicy = newBodyPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

func newBodyPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// HTML renders the markdown body and sanitises the result.
func (p Page) HTML() (template.HTML, error) {
	raw, err := renderMarkdown(p.Body)
	if err != nil {
		return "", err
	}
	// #nosec G203 -- sanitised by bluemonday
	return template.HTML(strings.TrimSpace(bodyPolicy.Sanitize(raw))), nil
}

// Excerpt returns the plain text of the body cut to n runes.
func (p Page) Excerpt(n int) string {
	raw, err := renderMarkdown(p.Body)
	if err != nil {
		return ""
	}
	text := html.UnescapeString(textPolicy.Sanitize(raw))
	return truncate(strings.Join(strings.Fields(text), " "), n)
}

// Image returns the front matter image, else the first image in the body.
func (p Page) Image() string {
	if p.SEO.Image != "" {
		return p.SEO.Image
	}
	raw, err := renderMarkdown(p.Body)
	if err != nil {
		return ""
	}
	return firstImage(raw)
}

// Description returns the front matter description, the summary or an
// excerpt of the body, in that order.
func (p Page) Description() string {
	return firstNonEmpty(p.SEO.Description, p.Summary, p.Excerpt(ExcerptLength))
}

// Apply sets the page's metadata on m. Pages are articles unless the front
// matter says otherwise; a publish date adds an Article JSON-LD tag.
func (p Page) Apply(m *seo.Manager) error {
	m.Title(firstNonEmpty(p.SEO.Title, p.Title))
	if d := p.Description(); d != "" {
		m.Description(d)
	}
	if img := p.Image(); img != "" {
		m.Image(img)
	}
	if p.SEO.Keywords != "" {
		m.Keywords(p.SEO.Keywords)
	}
	m.Type(firstNonEmpty(p.SEO.Type, "article"))
	if !p.PublishedAt.IsZero() {
		article := m.Article(p.Author, p.PublishedAt.UTC().Format(time.RFC3339))
		if !p.UpdatedAt.IsZero() {
			article["dateModified"] = p.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if err := m.JSONLD("article", article); err != nil {
			return fmt.Errorf("cms: %s: %w", p.Slug, err)
		}
	}
	return nil
}

func renderMarkdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("cms: render markdown: %w", err)
	}
	return buf.String(), nil
}

// firstImage returns the src of the first <img> in fragment.
func firstImage(fragment string) string {
	doc, err := nethtml.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var walk func(*nethtml.Node) string
	walk = func(n *nethtml.Node) string {
		if n.Type == nethtml.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" && strings.TrimSpace(attr.Val) != "" {
					return attr.Val
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if src := walk(c); src != "" {
				return src
			}
		}
		return ""
	}
	return walk(doc)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
