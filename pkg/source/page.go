package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-lighthouse-check/pkg/target"
)

// PageSource はページ内の同一ホストへのリンクを監査対象にします。
// リンクのアンカーテキストがラベルになります。
type PageSource struct {
	Fetcher      Fetcher
	URL          string
	IncludeSelf  bool
	Limit        int
	WithoutLabel bool
}

func (s *PageSource) Name() string { return "ページ " + s.URL }

func (s *PageSource) Collect(ctx context.Context) ([]target.Target, error) {
	base, err := url.Parse(s.URL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("無効なページURLです: %s", s.URL)
	}

	body, err := s.Fetcher.FetchBytes(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("ページの取得失敗 (URL: %s): %w", s.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}
	return s.linkTargets(base, doc), nil
}

func (s *PageSource) linkTargets(base *url.URL, doc *goquery.Document) []target.Target {
	seen := map[string]bool{}
	targets := []target.Target{}

	add := func(label, link string) {
		if seen[link] || (s.Limit > 0 && len(targets) >= s.Limit) {
			return
		}
		seen[link] = true
		if s.WithoutLabel {
			label = ""
		}
		targets = append(targets, target.Target{Label: strings.TrimSpace(label), URL: link})
	}

	if s.IncludeSelf {
		add(strings.TrimSpace(doc.Find("title").First().Text()), normalizeLink(base))
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.EqualFold(resolved.Host, base.Host) {
			return
		}
		add(textUtils.NormalizeText(a.Text()), normalizeLink(resolved))
	})

	return targets
}

func normalizeLink(u *url.URL) string {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	return clean.String()
}
