package target

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

// Target は監査対象のURLと、任意のラベルを保持します。
type Target struct {
	Label string
	URL   string
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// New はラベルとURLから Target を作ります。URLのスキームは EnsureScheme で補完されます。
// ラベルは区切り文字列を含んでいてもそのまま保持されます。
func New(label, rawURL string) (Target, error) {
	processed, err := EnsureScheme(strings.TrimSpace(rawURL))
	if err != nil {
		return Target{}, err
	}
	return Target{Label: label, URL: processed}, nil
}

// FromSpec は urllist.Spec を Target に変換します。
func FromSpec(spec urllist.Spec) (Target, error) {
	t, err := New(spec.Label, spec.URL)
	if err != nil {
		return Target{}, fmt.Errorf("%q のURL処理エラー: %w", spec.String(), err)
	}
	return t, nil
}

// FromSpecs は Spec のリストを順序を保ったまま Target に変換します。
func FromSpecs(specs []urllist.Spec) ([]Target, error) {
	targets := make([]Target, 0, len(specs))
	for _, spec := range specs {
		t, err := FromSpec(spec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// EnsureScheme は、URLのスキームが存在しない場合に https:// を補完します。
// 既にスキームが存在する場合は、それが http または https であるかをチェックします。
func EnsureScheme(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("URLのパースエラー: %w", err)
	}

	if parsedURL.Scheme != "" {
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
		}
		return rawURL, nil
	}

	if rawURL == "" {
		return "", fmt.Errorf("URLが空です")
	}
	return "https://" + rawURL, nil
}

// Identifier は Target を正規化された識別子に戻します。
func (t Target) Identifier() string {
	if t.Label == "" {
		return t.URL
	}
	return t.Label + urllist.Separator + t.URL
}

// Name は表示用の名前です。ラベルがあればラベル、なければURLを返します。
func (t Target) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return t.URL
}

// Slug はレポートファイル名に使える文字列を返します。
func (t Target) Slug() string {
	base := t.URL
	if u, err := url.Parse(t.URL); err == nil && u.Host != "" {
		base = u.Host + u.Path
	}
	if t.Label != "" {
		base = t.Label + "-" + base
	}

	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if slug == "" {
		return "report"
	}
	return slug
}
