package types

import (
	"time"

	"github.com/shouni/go-lighthouse-check/pkg/target"
)

// Lighthouse のカテゴリID
const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
	CategoryPWA           = "pwa"
)

// Categories はレポート出力時のカテゴリの並び順です。
var Categories = []string{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
	CategoryPWA,
}

// Scores はカテゴリIDごとのスコア (0-100) です。
// Lighthouse がスコアを返さなかったカテゴリは含まれません。
type Scores map[string]int

// AuditResult は、1つの Target に対する Lighthouse 実行結果、またはその処理中に発生したエラーを保持します。
type AuditResult struct {
	Target            target.Target `json:"-"`
	Label             string        `json:"label,omitempty"`
	URL               string        `json:"url"`
	FinalURL          string        `json:"finalUrl,omitempty"`
	FormFactor        string        `json:"formFactor,omitempty"`
	LighthouseVersion string        `json:"lighthouseVersion,omitempty"`
	FetchTime         time.Time     `json:"fetchTime,omitempty"`
	Scores            Scores        `json:"scores,omitempty"`
	ReportPath        string        `json:"localReport,omitempty"`
	RuntimeError      string        `json:"runtimeError,omitempty"`
	Error             error         `json:"-"`
}

// NewAuditResult は Target の情報を埋めた AuditResult を返します。
func NewAuditResult(t target.Target) AuditResult {
	return AuditResult{Target: t, Label: t.Label, URL: t.URL}
}

// Failed は実行エラーまたは Lighthouse のランタイムエラーがある場合に true を返します。
func (r AuditResult) Failed() bool {
	return r.Error != nil || r.RuntimeError != ""
}

// FailureMessage は失敗理由を返します。失敗していなければ空文字列です。
func (r AuditResult) FailureMessage() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	return r.RuntimeError
}
