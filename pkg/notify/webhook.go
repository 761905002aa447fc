package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// Poster はJSONをPOSTしてレスポンスボディを返す機能のインターフェースです。
// *httpkit.Client がこれを満たし、5xx とネットワークエラーのリトライも担います。
type Poster interface {
	PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error)
}

// Webhook は Slack 互換の Incoming Webhook に監査結果を送信します。
type Webhook struct {
	url    string
	poster Poster
}

// NewWebhook は新しい Webhook を生成します。
func NewWebhook(url string, poster Poster) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("notify.NewWebhook: URL cannot be empty")
	}
	if poster == nil {
		return nil, fmt.Errorf("notify.NewWebhook: Poster cannot be nil")
	}
	return &Webhook{url: url, poster: poster}, nil
}

type payload struct {
	Text string `json:"text"`
}

// Send は results の要約を Webhook に送信します。
func (w *Webhook) Send(ctx context.Context, results []types.AuditResult) error {
	if _, err := w.poster.PostJSONAndFetchBytes(ctx, w.url, payload{Text: FormatMessage(results)}); err != nil {
		if httpkit.IsNonRetryableError(err) {
			return fmt.Errorf("Webhookが通知を拒否しました: %w", err)
		}
		return fmt.Errorf("Webhook通知に失敗しました: %w", err)
	}
	return nil
}

// FormatMessage は Webhook に送る本文を作ります。
func FormatMessage(results []types.AuditResult) string {
	var b strings.Builder
	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}
	fmt.Fprintf(&b, "Lighthouse 監査結果: %d 件 (失敗 %d 件)\n", len(results), failed)

	for _, res := range results {
		name := res.URL
		if res.Label != "" {
			name = res.Label + " " + res.URL
		}
		if res.Failed() {
			fmt.Fprintf(&b, "• %s: ❌ %s\n", name, res.FailureMessage())
			continue
		}

		var parts []string
		for _, category := range types.Categories {
			if score, ok := res.Scores[category]; ok {
				parts = append(parts, fmt.Sprintf("%s %d", category, score))
			}
		}
		fmt.Fprintf(&b, "• %s: %s\n", name, strings.Join(parts, " / "))
	}
	return strings.TrimRight(b.String(), "\n")
}
