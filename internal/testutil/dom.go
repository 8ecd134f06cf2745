package testutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses the provided HTML payload into a goquery document for assertions.
func ParseHTML(t testing.TB, body string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// MetaContent returns the content attribute of the first <meta> matching
// selector, and whether one was found.
func MetaContent(doc *goquery.Document, selector string) (string, bool) {
	return doc.Find(selector).First().Attr("content")
}
