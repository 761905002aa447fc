package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-lighthouse-check/pkg/target"
)

// FeedSource は RSS/Atom フィードの各記事のリンクを監査対象にします。
// WithTitles が true の場合は記事タイトルをラベルにします。
type FeedSource struct {
	Fetcher    Fetcher
	URL        string
	WithTitles bool
	Limit      int
}

func (s *FeedSource) Name() string { return "フィード " + s.URL }

func (s *FeedSource) Collect(ctx context.Context) ([]target.Target, error) {
	body, err := s.Fetcher.FetchBytes(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", s.URL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (URL: %s): %w", s.URL, err)
	}
	return feedTargets(feed, s.WithTitles, s.Limit), nil
}

func feedTargets(feed *gofeed.Feed, withTitles bool, limit int) []target.Target {
	if feed == nil {
		return []target.Target{}
	}

	targets := make([]target.Target, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		label := ""
		if withTitles {
			label = strings.TrimSpace(item.Title)
		}
		t, err := target.New(label, item.Link)
		if err != nil {
			// mailto: などの監査できないリンクは飛ばす
			continue
		}
		targets = append(targets, t)
		if limit > 0 && len(targets) >= limit {
			break
		}
	}
	return targets
}
