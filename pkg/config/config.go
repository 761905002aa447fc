package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-lighthouse-check/pkg/lighthouse"
	"github.com/shouni/go-lighthouse-check/pkg/report"
	"github.com/shouni/go-lighthouse-check/pkg/runner"
)

// DefaultFileName は --config が指定されなかった場合に探す設定ファイル名です。
const DefaultFileName = ".lighthouse-check.yaml"

// Config は lighthouse-check の設定です。
type Config struct {
	// URLs は URL文字列、[url]、[label, url] の混在したリストです。
	// YAML では 123 のような数字のラベルは数値としてデコードされ不正な入力になるため、"123" のように引用符で囲みます。
	URLs     []any  `yaml:"urls"`
	URLsFile string `yaml:"urlsFile"`
	URLsURL  string `yaml:"urlsUrl"`
	FeedURL  string `yaml:"feedUrl"`
	PageURL  string `yaml:"pageUrl"`
	// LinkLimit は feedUrl / pageUrl から取り出すURLの上限です (0 は無制限)。
	LinkLimit int `yaml:"linkLimit"`

	LighthousePath   string            `yaml:"lighthousePath"`
	FormFactor       string            `yaml:"formFactor"`
	ThrottlingMethod string            `yaml:"throttlingMethod"`
	Locale           string            `yaml:"locale"`
	MaxWaitForLoad   time.Duration     `yaml:"maxWaitForLoad"`
	ExtraHeaders     map[string]string `yaml:"extraHeaders"`
	Categories       []string          `yaml:"categories"`
	ChromeFlags      string            `yaml:"chromeFlags"`

	Concurrency     int    `yaml:"concurrency"`
	OutputDirectory string `yaml:"outputDirectory"`
	OutputFile      string `yaml:"outputFile"`
	Format          string `yaml:"format"`

	MinScores  map[string]int `yaml:"minScores"`
	WebhookURL string         `yaml:"webhookUrl"`
}

// DefaultConfig はデフォルト設定を返します。
func DefaultConfig() *Config {
	return &Config{
		LighthousePath: lighthouse.DefaultBinary,
		FormFactor:     lighthouse.FormFactorMobile,
		Concurrency:    runner.DefaultMaxConcurrency,
		Format:         report.FormatText,
		ExtraHeaders:   map[string]string{},
		MinScores:      map[string]int{},
	}
}

// LoadConfig は設定ファイルを読み込みます。
// configPath が空の場合はカレントディレクトリの DefaultFileName を探し、存在しなければデフォルト設定を返します。
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultFileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました (%s): %w", configPath, err)
	}
	return cfg, nil
}

// URLsJSON は URLs をJSONテキストに変換します。URLs が空の場合は空文字列を返します。
// 形の検証は urllist.Parse に任せます。
func (c *Config) URLsJSON() (string, error) {
	if len(c.URLs) == 0 {
		return "", nil
	}
	text, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(c.URLs)
	if err != nil {
		return "", fmt.Errorf("urls のJSON変換に失敗しました: %w", err)
	}
	return text, nil
}

// HasSource は監査対象の入力がいずれか設定されているかを返します。
func (c *Config) HasSource() bool {
	return len(c.URLs) > 0 || c.URLsFile != "" || c.URLsURL != "" || c.FeedURL != "" || c.PageURL != ""
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	switch c.FormFactor {
	case lighthouse.FormFactorMobile, lighthouse.FormFactorDesktop:
	default:
		return fmt.Errorf("formFactor は %s または %s を指定してください: %q", lighthouse.FormFactorMobile, lighthouse.FormFactorDesktop, c.FormFactor)
	}

	switch c.ThrottlingMethod {
	case "", "simulate", "devtools", "provided":
	default:
		return fmt.Errorf("throttlingMethod は simulate, devtools, provided のいずれかを指定してください: %q", c.ThrottlingMethod)
	}

	validFormat := false
	for _, f := range report.Formats {
		if c.Format == f {
			validFormat = true
		}
	}
	if !validFormat {
		return fmt.Errorf("format が不正です: %q", c.Format)
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency は1以上を指定してください: %d", c.Concurrency)
	}
	if c.MaxWaitForLoad < 0 {
		return fmt.Errorf("maxWaitForLoad は0以上を指定してください: %s", c.MaxWaitForLoad)
	}
	if c.LinkLimit < 0 {
		return fmt.Errorf("linkLimit は0以上を指定してください: %d", c.LinkLimit)
	}
	return report.ValidateMinScores(c.MinScores)
}

// LighthouseOptions は Lighthouse 実行用の Options を返します。
func (c *Config) LighthouseOptions() lighthouse.Options {
	return lighthouse.Options{
		Binary:           c.LighthousePath,
		FormFactor:       c.FormFactor,
		ThrottlingMethod: c.ThrottlingMethod,
		Locale:           c.Locale,
		MaxWaitForLoad:   c.MaxWaitForLoad,
		ExtraHeaders:     c.ExtraHeaders,
		ChromeFlags:      c.ChromeFlags,
		Categories:       c.Categories,
		OutputDirectory:  c.OutputDirectory,
	}
}
