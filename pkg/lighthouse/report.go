package lighthouse

import (
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/shouni/go-lighthouse-check/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RuntimeError は Lighthouse がレポート内に記録した実行時エラーです。
type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RuntimeError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Report は Lighthouse の JSON レポート (LHR) から必要な項目だけを取り出したものです。
type Report struct {
	Raw               []byte
	LighthouseVersion string
	RequestedURL      string
	FinalURL          string
	FormFactor        string
	FetchTime         time.Time
	Scores            types.Scores
	RuntimeError      *RuntimeError
}

type lhr struct {
	LighthouseVersion string        `json:"lighthouseVersion"`
	RequestedURL      string        `json:"requestedUrl"`
	FinalURL          string        `json:"finalUrl"`
	FinalDisplayedURL string        `json:"finalDisplayedUrl"`
	FetchTime         string        `json:"fetchTime"`
	RuntimeError      *RuntimeError `json:"runtimeError"`
	ConfigSettings    struct {
		FormFactor string `json:"formFactor"`
	} `json:"configSettings"`
	Categories map[string]struct {
		Score *float64 `json:"score"`
	} `json:"categories"`
}

// ParseReport は Lighthouse の JSON 出力を解析します。
func ParseReport(data []byte) (*Report, error) {
	var raw lhr
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("Lighthouseレポートの解析に失敗しました: %w", err)
	}
	if raw.LighthouseVersion == "" && len(raw.Categories) == 0 && raw.RuntimeError == nil {
		return nil, fmt.Errorf("Lighthouseレポートの形式ではありません")
	}

	report := &Report{
		Raw:               data,
		LighthouseVersion: raw.LighthouseVersion,
		RequestedURL:      raw.RequestedURL,
		FinalURL:          raw.FinalDisplayedURL,
		FormFactor:        raw.ConfigSettings.FormFactor,
		Scores:            types.Scores{},
	}
	// finalDisplayedUrl は v10 以降。それ以前は finalUrl のみ
	if report.FinalURL == "" {
		report.FinalURL = raw.FinalURL
	}
	if raw.FetchTime != "" {
		if ts, err := time.Parse(time.RFC3339, raw.FetchTime); err == nil {
			report.FetchTime = ts
		}
	}
	// 古いバージョンはエラーがなくても NO_ERROR を出力する
	if raw.RuntimeError != nil && raw.RuntimeError.Code != "" && raw.RuntimeError.Code != "NO_ERROR" {
		report.RuntimeError = raw.RuntimeError
	}

	for id, category := range raw.Categories {
		if category.Score == nil {
			continue
		}
		report.Scores[id] = int(math.Round(*category.Score * 100))
	}
	return report, nil
}
