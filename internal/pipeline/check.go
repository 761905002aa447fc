package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shouni/go-lighthouse-check/pkg/config"
	"github.com/shouni/go-lighthouse-check/pkg/lighthouse"
	"github.com/shouni/go-lighthouse-check/pkg/notify"
	"github.com/shouni/go-lighthouse-check/pkg/report"
	"github.com/shouni/go-lighthouse-check/pkg/retry"
	"github.com/shouni/go-lighthouse-check/pkg/runner"
	"github.com/shouni/go-lighthouse-check/pkg/source"
	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// Dependencies は Check が利用する外部依存です。
type Dependencies struct {
	Fetcher source.Fetcher
	// Poster は webhookUrl が設定されている場合の通知に使われます。
	Poster        notify.Poster
	Executor      lighthouse.Executor
	RetryConfig   retry.Config
	Out           io.Writer
	StartInterval time.Duration
	// Stdin が設定され、urlsFile が "-" の場合に読み込まれます。
	Stdin            io.Reader
	SkipVersionCheck bool
}

// BuildSources は設定から Source のリストを組み立てます。
// 順序は urls, urlsFile, urlsUrl, feedUrl, pageUrl です。
func BuildSources(cfg *config.Config, fetcher source.Fetcher, stdin io.Reader) ([]source.Source, error) {
	var sources []source.Source

	text, err := cfg.URLsJSON()
	if err != nil {
		return nil, err
	}
	if text != "" {
		sources = append(sources, &source.JSONSource{Text: text})
	}

	if cfg.URLsFile == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("標準入力が利用できません")
		}
		sources = append(sources, &source.JSONSource{Reader: stdin})
	} else if cfg.URLsFile != "" {
		sources = append(sources, &source.JSONSource{Path: cfg.URLsFile})
	}

	remote := cfg.URLsURL != "" || cfg.FeedURL != "" || cfg.PageURL != ""
	if remote && fetcher == nil {
		return nil, fmt.Errorf("HTTPクライアントが初期化されていません")
	}
	if cfg.URLsURL != "" {
		sources = append(sources, &source.RemoteJSONSource{Fetcher: fetcher, URL: cfg.URLsURL})
	}
	if cfg.FeedURL != "" {
		sources = append(sources, &source.FeedSource{Fetcher: fetcher, URL: cfg.FeedURL, WithTitles: true, Limit: cfg.LinkLimit})
	}
	if cfg.PageURL != "" {
		sources = append(sources, &source.PageSource{Fetcher: fetcher, URL: cfg.PageURL, IncludeSelf: true, Limit: cfg.LinkLimit})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("処理対象のURLが一つも指定されていません")
	}
	return sources, nil
}

// CollectTargets は設定されたすべての入力から Target を集めます。
func CollectTargets(ctx context.Context, cfg *config.Config, deps Dependencies) ([]target.Target, error) {
	sources, err := BuildSources(cfg, deps.Fetcher, deps.Stdin)
	if err != nil {
		return nil, err
	}

	targets, err := source.CollectAll(ctx, sources...)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("処理対象のURLが一つも指定されていません")
	}
	return targets, nil
}

// Check は対象URLの収集、Lighthouse の並列実行、レポート出力、通知、スコア検証を順に行います。
// 結果は検証に失敗した場合も返されます。
func Check(ctx context.Context, cfg *config.Config, deps Dependencies) ([]types.AuditResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Executor == nil {
		deps.Executor = lighthouse.ExecExecutor{}
	}

	targets, err := CollectTargets(ctx, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("対象URLの収集エラー: %w", err)
	}

	if !deps.SkipVersionCheck {
		v, err := lighthouse.DetectVersion(ctx, deps.Executor, cfg.LighthousePath)
		if err != nil {
			return nil, err
		}
		if err := lighthouse.CheckVersion(v); err != nil {
			return nil, err
		}
		log.Printf("Lighthouse %s を使用します", v)
	}

	lh, err := lighthouse.NewRunner(deps.Executor, cfg.LighthouseOptions(), deps.RetryConfig)
	if err != nil {
		return nil, fmt.Errorf("Lighthouse実行環境の初期化エラー: %w", err)
	}

	log.Printf("監査開始 (対象URL数: %d, 最大同時実行数: %d, フォームファクタ: %s)", len(targets), cfg.Concurrency, cfg.FormFactor)
	results := runner.NewParallelRunner(lh, cfg.Concurrency, deps.StartInterval).RunAll(ctx, targets)

	if err := writeOutputs(cfg, deps.Out, results); err != nil {
		return results, err
	}

	if cfg.WebhookURL != "" {
		if err := sendNotification(ctx, cfg.WebhookURL, deps.Poster, results); err != nil {
			// 通知の失敗で監査結果を失わないよう、ログに残して続行する
			log.Printf("通知の送信に失敗しました: %v", err)
		}
	}

	return results, report.Validate(results, cfg.MinScores)
}

func writeOutputs(cfg *config.Config, out io.Writer, results []types.AuditResult) error {
	if cfg.OutputFile == "" {
		return report.Write(out, cfg.Format, results)
	}

	f, err := os.Create(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("出力ファイルの作成に失敗しました: %w", err)
	}
	defer f.Close()

	if err := report.Write(f, cfg.Format, results); err != nil {
		return err
	}
	log.Printf("レポートを書き出しました: %s", cfg.OutputFile)
	return report.Write(out, report.FormatText, results)
}

func sendNotification(ctx context.Context, url string, poster notify.Poster, results []types.AuditResult) error {
	webhook, err := notify.NewWebhook(url, poster)
	if err != nil {
		return err
	}
	return webhook.Send(ctx, results)
}
