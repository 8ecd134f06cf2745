package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suffix(s string) Modifier {
	return func(v string) string { return v + s }
}

func TestGetUnsetKeyHasNoValue(t *testing.T) {
	t.Parallel()

	m := New()
	for _, key := range []string{"title", "foo", "twitter.title", "a.b.c"} {
		v, ok := m.Lookup(key)
		assert.False(t, ok, key)
		assert.Empty(t, v, key)
	}
}

func TestSetReturnsResolvedValue(t *testing.T) {
	t.Parallel()

	m := New()
	require.Equal(t, "bar", m.Set("foo", String("bar")))

	m.Modify("title", suffix(" | ArchTech"))
	require.Equal(t, "Blog | ArchTech", m.Set("title", String("Blog")))
}

func TestSetManyReturnsModifiedValues(t *testing.T) {
	t.Parallel()

	m := New().Modify("title", suffix(" | ArchTech"))
	got := m.SetMany(map[string]Value{"title": String("Blog"), "abc": String("xyz")})

	require.Equal(t, map[string]string{"title": "Blog | ArchTech", "abc": "xyz"}, got)
	require.Equal(t, "xyz", m.Get("abc"))
}

func TestModifiersApplyOnlyToSetValues(t *testing.T) {
	t.Parallel()

	m := New()
	m.Configure(Request{
		Key:      "title",
		Modifier: suffix(" | ArchTech"),
		Default:  String("ArchTech - Web development agency"),
	})
	require.Equal(t, "ArchTech - Web development agency", m.Get("title"))

	m.Title("About us")
	require.Equal(t, "About us | ArchTech", m.Get("title"))
	require.Equal(t, "About us", m.Raw("title"))
}

func TestDefaultsYieldToSetValues(t *testing.T) {
	t.Parallel()

	m := New()
	m.Configure(Request{Key: "title", Default: String("foo")})
	require.Equal(t, "foo", m.Get("title"))

	m.Title("bar")
	require.Equal(t, "bar", m.Get("title"))

	m.Configure(Request{Key: "description", Value: String("bar"), Default: String("foo")})
	require.Equal(t, "bar", m.Get("description"))
}

func TestNullValueFallsBackToDefault(t *testing.T) {
	t.Parallel()

	m := New().SetDefault("description", String("fallback"))
	m.Set("description", Null)
	require.Equal(t, "fallback", m.Get("description"))

	m.SetDefault("description", Null)
	_, ok := m.Lookup("description")
	require.False(t, ok)
}

func TestThunksAreEvaluatedOnEveryGet(t *testing.T) {
	t.Parallel()

	calls := 0
	m := New()
	m.Set("title", Func(func() string {
		calls++
		return "bar"
	}))
	require.Equal(t, 1, calls, "Set resolves once")

	require.Equal(t, "bar", m.Get("title"))
	require.Equal(t, "bar", m.Get("title"))
	require.Equal(t, 3, calls)

	m.Configure(Request{Key: "description", Default: Func(func() string { return "lazy" })})
	require.Equal(t, "lazy", m.Get("description"))
}

func TestDottedKeysFallBackToSuffix(t *testing.T) {
	t.Parallel()

	m := New()
	m.Twitter(true)
	m.Title("foo")
	m.TwitterDescription("bar")
	m.Description("baz")

	require.Equal(t, "foo", m.Get("twitter.title"))
	require.Equal(t, "bar", m.Get("twitter.description"))
	require.Equal(t, "baz", m.Get("description"))

	m.TwitterTitle("qux")
	require.Equal(t, "qux", m.Get("twitter.title"))
	require.Equal(t, "foo", m.Get("title"))
}

func TestDottedDefaultWinsOverSuffix(t *testing.T) {
	t.Parallel()

	m := New().SetDefault("twitter.title", String("tw-default"))
	m.Title("page")
	require.Equal(t, "tw-default", m.Get("twitter.title"))
	require.Equal(t, "tw-default", m.Raw("twitter.title"))
}

func TestRawFallbackResolvesShorterKeyWithGet(t *testing.T) {
	t.Parallel()

	m := New().Modify("title", suffix("!"))
	m.Title("foo")
	require.Equal(t, "foo", m.Raw("title"))
	require.Equal(t, "foo!", m.Raw("twitter.title"))
}

func TestSettingDottedKeyEnablesExtension(t *testing.T) {
	t.Parallel()

	m := New()
	require.False(t, m.IsEnabled("twitter"))
	require.NotContains(t, m.All(), "twitter.title")

	m.Set("twitter.title", String("foo"))
	require.True(t, m.IsEnabled("twitter"))
	require.Equal(t, "foo", m.All()["twitter.title"])
	require.Contains(t, extensionNames(m), "twitter")
}

func TestDisablingExtensionHidesButKeepsValues(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("ext.sub", String("v"))
	require.Contains(t, m.All(), "ext.sub")

	m.Extension("ext", false)
	require.NotContains(t, m.All(), "ext.sub")
	require.Equal(t, "v", m.Get("ext.sub"), "values stay individually gettable")

	m.Extension("ext", true)
	require.Equal(t, "v", m.All()["ext.sub"])
}

func TestAllIncludesWellKnownAndTwitterKeysWhenEnabled(t *testing.T) {
	t.Parallel()

	m := New()
	all := m.All()
	require.NotEmpty(t, all)
	require.Contains(t, all, "title")
	require.NotContains(t, all, "twitter.title")

	m.Twitter(true)
	require.Subset(t, m.Keys(), []string{"twitter.title", "twitter.description", "twitter.site", "twitter.creator", "twitter.image"})

	m.Twitter(false)
	require.NotContains(t, m.All(), "twitter.title")
}

func TestAllFiltersUndeclaredPrefixesButGetStillResolves(t *testing.T) {
	t.Parallel()

	m := New().SetDefault("og.extra", String("x"))
	require.NotContains(t, m.All(), "og.extra")
	require.Equal(t, "x", m.Get("og.extra"))
}

func TestExtensionsListUsesConventionalViews(t *testing.T) {
	t.Parallel()

	m := New()
	require.Empty(t, m.Extensions())

	m.Extension("facebook", true, WithView("test::facebook"))
	m.Favicon()
	m.Twitter(true)

	require.Equal(t, []ExtensionView{
		{Name: "twitter", View: "seo::extensions.twitter"},
		{Name: "favicon", View: "seo::extensions.favicon"},
		{Name: "facebook", View: "test::facebook"},
	}, m.Extensions())
	require.Equal(t, "test::facebook", m.Meta("extensions.facebook.view"))
}

func TestMetaBag(t *testing.T) {
	t.Parallel()

	m := New()
	m.SetMeta("foo", "bar")
	require.Equal(t, "bar", m.Meta("foo"))

	m.SetMeta("abc", map[string]any{"def": "xyz"})
	require.Equal(t, "xyz", m.Meta("abc.def"))

	m.SetMeta("abc.def", "xxx")
	require.Equal(t, "xxx", m.Meta("abc.def"))

	m.SetMetas(map[string]any{"abc.def": "yyy"})
	require.Equal(t, "yyy", m.Meta("abc.def"))

	require.Nil(t, m.Meta("abc.def.ghi"))
	require.Nil(t, m.Meta("missing"))

	m.SetMeta("foo.bar", "nested")
	require.Equal(t, "nested", m.Meta("foo.bar"), "scalar intermediates are replaced")
}

func TestTagOverridesByProperty(t *testing.T) {
	t.Parallel()

	m := New()
	m.RawTag("<link rel=\"me\" href=\"/me\">", "")
	m.Tag("fb:image", "foo")
	m.Tag("og:title", "first")
	m.Tag("fb:image", "bar")

	tags := m.Tags()
	require.Len(t, tags, 3)
	require.Equal(t, `<link rel="me" href="/me">`, tags[0])
	require.Equal(t, `<meta property="fb:image" content="bar">`, tags[1], "override keeps position")
	require.Equal(t, `<meta property="og:title" content="first">`, tags[2])

	require.True(t, m.HasTag("og:title"))
	require.False(t, m.HasTag("og:description"))
	require.True(t, m.HasRawTag("meta.fb:image"))
}

func TestTagEscapesContent(t *testing.T) {
	t.Parallel()

	raw := `Testing string " with several ' XSS characters </title> " . ' . & done`
	m := New().Tag("og:site_name", raw)

	tag := m.Tags()[0]
	content := strings.TrimSuffix(strings.TrimPrefix(tag, `<meta property="og:site_name" content="`), `">`)
	for _, ch := range []string{`"`, `'`, `<`, `>`} {
		require.NotContains(t, content, ch)
	}
	require.Equal(t, "Testing string &#34; with several &#39; XSS characters &lt;/title&gt; &#34; . &#39; . &amp; done", content)
}

func TestDispatchConvertsAccessorNames(t *testing.T) {
	t.Parallel()

	m := New()
	m.Dispatch("fooBar", Request{Value: String("baz")})
	require.Equal(t, "baz", m.Get("foo.bar"))

	v, ok := m.Dispatch("fooBar", Request{})
	require.True(t, ok)
	require.Equal(t, "baz", v)

	m.Dispatch("abcDef", Request{Modifier: strings.ToUpper})
	m.Dispatch("abcDef", Request{Value: String("xyz")})
	require.Equal(t, "XYZ", m.Get("abc.def"))
}

func TestDispatchKeepsUnderscoredKeys(t *testing.T) {
	t.Parallel()

	m := New()
	m.Dispatch("og_image", Request{Value: String("https://example.com/og.png")})

	require.Equal(t, "https://example.com/og.png", m.Get("og_image"))
	_, ok := m.Lookup("og.image")
	require.False(t, ok)
	require.False(t, m.IsDeclared("og"))
	require.NotContains(t, extensionNames(m), "og")
}

func TestDispatchTogglesDeclaredExtensions(t *testing.T) {
	t.Parallel()

	m := New()
	m.Dispatch("twitter", Request{})
	require.True(t, m.IsEnabled("twitter"))

	m.Dispatch("twitter", Request{Disable: true})
	require.False(t, m.IsEnabled("twitter"))

	m.Extension("foo", true)
	m.Dispatch("fooTitle", Request{Value: String("bar")})
	require.Equal(t, "bar", m.All()["foo.title"])
}

func TestDotKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"title":              "title",
		"twitterTitle":       "twitter.title",
		"twitterDescription": "twitter.description",
		"fooBar":             "foo.bar",
		"twitter.site":       "twitter.site",
		"og_image":           "og_image",
		"ogImage_alt":        "og.image_alt",
	}
	for in, want := range cases {
		assert.Equal(t, want, DotKey(in), in)
	}
}

func TestWithURLSetsCanonical(t *testing.T) {
	t.Parallel()

	m := New()
	_, ok := m.Lookup("url")
	require.False(t, ok)

	m.WithURL("http://localhost/blog")
	require.Equal(t, "http://localhost/blog", m.Get("url"))
}

func extensionNames(m *Manager) []string {
	var out []string
	for _, e := range m.Extensions() {
		out = append(out, e.Name)
	}
	return out
}
