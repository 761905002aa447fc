package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

func TestFromSpec(t *testing.T) {
	tests := []struct {
		name     string
		spec     urllist.Spec
		expected Target
	}{
		{name: "URLのみ", spec: urllist.Spec{Kind: urllist.Bare, URL: "https://www.foo.software"}, expected: Target{URL: "https://www.foo.software"}},
		{name: "要素1のタプル", spec: urllist.Spec{Kind: urllist.Tuple1, URL: "https://www.foo.software"}, expected: Target{URL: "https://www.foo.software"}},
		{name: "ラベル付き", spec: urllist.Spec{Kind: urllist.Tuple2, Label: "abc", URL: "https://www.foo.software"}, expected: Target{Label: "abc", URL: "https://www.foo.software"}},
		{name: "数字のラベル", spec: urllist.Spec{Kind: urllist.Tuple2, Label: "123", URL: "https://www.google.com"}, expected: Target{Label: "123", URL: "https://www.google.com"}},
		{name: "区切り文字列を含むラベル", spec: urllist.Spec{Kind: urllist.Tuple2, Label: "a::b", URL: "https://x.example"}, expected: Target{Label: "a::b", URL: "https://x.example"}},
		{name: "URL形式のラベル", spec: urllist.Spec{Kind: urllist.Tuple2, Label: "https://label.example", URL: "https://x.example"}, expected: Target{Label: "https://label.example", URL: "https://x.example"}},
		{name: "IPv6ホスト", spec: urllist.Spec{Kind: urllist.Bare, URL: "http://[::1]:8080/path"}, expected: Target{URL: "http://[::1]:8080/path"}},
		{name: "スキームなしはhttpsを補完", spec: urllist.Spec{Kind: urllist.Tuple2, Label: "home", URL: "www.foo.software"}, expected: Target{Label: "home", URL: "https://www.foo.software"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := FromSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestFromSpec_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://example.com", "mailto:me@example.com"} {
		_, err := FromSpec(urllist.Spec{Kind: urllist.Tuple2, Label: "label", URL: raw})
		assert.Error(t, err, "url=%q", raw)
	}
}

func TestFromSpecs(t *testing.T) {
	specs, err := urllist.Decode(`[["a::b", "https://x.example"], ["https://label.example", "https://y.example"], "https://z.example"]`)
	require.NoError(t, err)

	targets, err := FromSpecs(specs)
	require.NoError(t, err)
	assert.Equal(t, []Target{
		{Label: "a::b", URL: "https://x.example"},
		{Label: "https://label.example", URL: "https://y.example"},
		{URL: "https://z.example"},
	}, targets)

	_, err = FromSpecs([]urllist.Spec{{URL: "https://a.example"}, {URL: "ftp://b.example"}})
	assert.Error(t, err)
}

func TestEnsureScheme(t *testing.T) {
	actual, err := EnsureScheme("example.com/path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path", actual)

	actual, err = EnsureScheme("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", actual)

	_, err = EnsureScheme("ftp://example.com")
	assert.ErrorContains(t, err, "無効なURLスキーム")

	_, err = EnsureScheme("")
	assert.Error(t, err)
}

func TestTarget_Identifier(t *testing.T) {
	assert.Equal(t, "abc::https://a.example/x", Target{Label: "abc", URL: "https://a.example/x"}.Identifier())
	assert.Equal(t, "https://b.example", Target{URL: "https://b.example"}.Identifier())
}

func TestTarget_NameAndSlug(t *testing.T) {
	labeled := Target{Label: "Top Page", URL: "https://www.foo.software/blog/"}
	assert.Equal(t, "Top Page", labeled.Name())
	assert.Equal(t, "top-page-www-foo-software-blog", labeled.Slug())

	bare := Target{URL: "https://www.google.com"}
	assert.Equal(t, "https://www.google.com", bare.Name())
	assert.Equal(t, "www-google-com", bare.Slug())

	assert.Equal(t, "report", Target{URL: "///"}.Slug())
}
