package cmd

import (
	"log"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-lighthouse-check/pkg/retry"
)

// --- グローバル定数 ---

const (
	appName           = "lighthouse-check"
	defaultTimeoutSec = 10 // 秒
	defaultMaxRetries = retry.DefaultMaxRetries
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec int    // --timeout HTTPタイムアウト
	MaxRetries int    // --max-retries リトライ回数 (HTTP と Lighthouse 実行の両方)
	ConfigPath string // --config 設定ファイル
}

var Flags AppFlags
var globalFetcher *httpkit.Client

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.MaxRetries,
		"max-retries",
		defaultMaxRetries,
		"HTTPリクエストおよびLighthouse実行のリトライ最大回数",
	)
	rootCmd.PersistentFlags().StringVar(
		&Flags.ConfigPath,
		"config",
		"",
		"設定ファイル (YAML) のパス。未指定時は ./.lighthouse-check.yaml があれば使用",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(Flags.TimeoutSec) * time.Second

	if clibase.Flags.Verbose {
		log.Printf("HTTPクライアントのタイムアウトを設定しました (Timeout: %s)。", timeout)
		log.Printf("リトライ回数を設定しました (MaxRetries: %d)。", Flags.MaxRetries)
	}

	globalFetcher = httpkit.New(
		timeout,
		httpkit.WithMaxRetries(uint64(Flags.MaxRetries)),
	)
	return nil
}

// GetGlobalFetcher は、初期化されたフェッチャーを返す関数 (DIの代わり)
func GetGlobalFetcher() *httpkit.Client {
	return globalFetcher
}

// retryConfig は --max-retries を反映した Lighthouse 実行用のリトライ設定を返します。
func retryConfig() retry.Config {
	if Flags.MaxRetries < 0 {
		return retry.DefaultConfig().WithMaxRetries(0)
	}
	return retry.DefaultConfig().WithMaxRetries(uint64(Flags.MaxRetries))
}

// --- エントリポイント ---

// Execute は、clibase.Execute を使ってルートコマンドを実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		checkCmd,
		urlsCmd,
		versionCheckCmd,
	)
}
