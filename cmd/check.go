package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shouni/go-lighthouse-check/internal/pipeline"
	"github.com/shouni/go-lighthouse-check/pkg/config"
	"github.com/shouni/go-lighthouse-check/pkg/lighthouse"
	"github.com/shouni/go-lighthouse-check/pkg/runner"
	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

// checkFlags は check コマンドのフラグ値です。設定ファイルの値は、明示的に指定されたフラグで上書きされます。
type checkFlags struct {
	urls             string
	urlsFile         string
	urlsURL          string
	feedURL          string
	pageURL          string
	linkLimit        int
	lighthousePath   string
	formFactor       string
	throttlingMethod string
	locale           string
	maxWaitForLoad   time.Duration
	headers          map[string]string
	categories       []string
	chromeFlags      string
	concurrency      int
	outputDirectory  string
	outputFile       string
	format           string
	minScores        map[string]int
	webhookURL       string
	skipVersionCheck bool
	startInterval    time.Duration
}

var checkOpts checkFlags

// applyCheckFlags は明示的に指定されたフラグを cfg に反映します。
func applyCheckFlags(flags *pflag.FlagSet, opts checkFlags, cfg *config.Config) error {
	if flags.Changed("urls") {
		specs, err := urllist.Decode(opts.urls)
		if err != nil {
			return fmt.Errorf("--urls の解析エラー: %w", err)
		}
		// ラベルは label::url に連結せず [label, url] の形のまま保持する
		cfg.URLs = make([]any, len(specs))
		for i, spec := range specs {
			if spec.Kind == urllist.Tuple2 {
				cfg.URLs[i] = []any{spec.Label, spec.URL}
				continue
			}
			cfg.URLs[i] = spec.URL
		}
	}

	stringFlags := []struct {
		name  string
		dst   *string
		value string
	}{
		{"file", &cfg.URLsFile, opts.urlsFile},
		{"urls-url", &cfg.URLsURL, opts.urlsURL},
		{"feed", &cfg.FeedURL, opts.feedURL},
		{"page", &cfg.PageURL, opts.pageURL},
		{"lighthouse-path", &cfg.LighthousePath, opts.lighthousePath},
		{"form-factor", &cfg.FormFactor, opts.formFactor},
		{"throttling-method", &cfg.ThrottlingMethod, opts.throttlingMethod},
		{"locale", &cfg.Locale, opts.locale},
		{"chrome-flags", &cfg.ChromeFlags, opts.chromeFlags},
		{"output-dir", &cfg.OutputDirectory, opts.outputDirectory},
		{"output", &cfg.OutputFile, opts.outputFile},
		{"format", &cfg.Format, opts.format},
		{"webhook", &cfg.WebhookURL, opts.webhookURL},
	}
	for _, sf := range stringFlags {
		if flags.Changed(sf.name) {
			*sf.dst = sf.value
		}
	}

	if flags.Changed("link-limit") {
		cfg.LinkLimit = opts.linkLimit
	}
	if flags.Changed("max-wait-for-load") {
		cfg.MaxWaitForLoad = opts.maxWaitForLoad
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("categories") {
		cfg.Categories = opts.categories
	}
	for name, value := range opts.headers {
		cfg.ExtraHeaders[name] = value
	}
	for category, minimum := range opts.minScores {
		cfg.MinScores[category] = minimum
	}
	return nil
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "URLリストに対して Lighthouse を実行し、結果を出力します",
	Long: `--urls (JSON配列)、--file、--urls-url、--feed、--page で指定されたURLに対して Lighthouse を並列実行します。
--min-score を満たさない結果や監査に失敗した結果がある場合は終了コード1で終了します。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(Flags.ConfigPath)
		if err != nil {
			return err
		}
		if cfg.ExtraHeaders == nil {
			cfg.ExtraHeaders = map[string]string{}
		}
		if cfg.MinScores == nil {
			cfg.MinScores = map[string]int{}
		}
		if err := applyCheckFlags(cmd.Flags(), checkOpts, cfg); err != nil {
			return err
		}

		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if clibase.Flags.Verbose {
			log.Printf("設定: formFactor=%s concurrency=%d format=%s outputDirectory=%q", cfg.FormFactor, cfg.Concurrency, cfg.Format, cfg.OutputDirectory)
		}

		_, err = pipeline.Check(ctx, cfg, pipeline.Dependencies{
			Fetcher:          fetcher,
			Poster:           fetcher,
			Executor:         lighthouse.ExecExecutor{},
			RetryConfig:      retryConfig(),
			Out:              cmd.OutOrStdout(),
			Stdin:            cmd.InOrStdin(),
			StartInterval:    checkOpts.startInterval,
			SkipVersionCheck: checkOpts.skipVersionCheck,
		})
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return fmt.Errorf("中断されました: %w", err)
			}
			return err
		}
		return nil
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVarP(&checkOpts.urls, "urls", "u", "", `監査対象のJSON配列 (例: '["https://a.example", ["label", "https://b.example"]]')`)
	f.StringVarP(&checkOpts.urlsFile, "file", "f", "", "URLリストのJSONファイル (- で標準入力)")
	f.StringVar(&checkOpts.urlsURL, "urls-url", "", "URLリストのJSONを取得するURL")
	f.StringVar(&checkOpts.feedURL, "feed", "", "記事リンクを監査対象にする RSS/Atom フィードのURL")
	f.StringVar(&checkOpts.pageURL, "page", "", "同一ホストへのリンクを監査対象にするページのURL")
	f.IntVar(&checkOpts.linkLimit, "link-limit", 0, "--feed / --page から取り出すURLの上限 (0 は無制限)")
	f.StringVar(&checkOpts.lighthousePath, "lighthouse-path", lighthouse.DefaultBinary, "Lighthouse CLI のパス")
	f.StringVar(&checkOpts.formFactor, "form-factor", lighthouse.FormFactorMobile, "mobile または desktop")
	f.StringVar(&checkOpts.throttlingMethod, "throttling-method", "", "simulate, devtools, provided のいずれか")
	f.StringVar(&checkOpts.locale, "locale", "", "レポートのロケール (例: ja)")
	f.DurationVar(&checkOpts.maxWaitForLoad, "max-wait-for-load", 0, "ページ読み込みの最大待ち時間 (例: 45s)")
	f.StringToStringVar(&checkOpts.headers, "header", nil, "追加のリクエストヘッダー (例: --header Cookie=a=b)")
	f.StringSliceVar(&checkOpts.categories, "categories", nil, "実行するカテゴリ (例: performance,seo)")
	f.StringVar(&checkOpts.chromeFlags, "chrome-flags", "", "Chrome に渡すフラグ (既定: "+lighthouse.DefaultChromeFlags+")")
	f.IntVarP(&checkOpts.concurrency, "concurrency", "c", runner.DefaultMaxConcurrency, "Lighthouse の最大同時実行数")
	f.DurationVar(&checkOpts.startInterval, "start-interval", runner.DefaultStartInterval, "各監査の開始間隔")
	f.StringVar(&checkOpts.outputDirectory, "output-dir", "", "Lighthouse の JSON レポートを保存するディレクトリ")
	f.StringVarP(&checkOpts.outputFile, "output", "o", "", "結果の書き出し先ファイル (未指定時は標準出力)")
	f.StringVar(&checkOpts.format, "format", "text", "出力形式 (text, json, csv)")
	f.StringToIntVar(&checkOpts.minScores, "min-score", nil, "カテゴリごとの最低スコア (例: --min-score performance=90)")
	f.StringVar(&checkOpts.webhookURL, "webhook", "", "結果を送信する Slack 互換 Webhook のURL")
	f.BoolVar(&checkOpts.skipVersionCheck, "skip-version-check", false, "Lighthouse のバージョン確認を省略")
}
