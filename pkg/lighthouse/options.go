package lighthouse

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBinary      = "lighthouse"
	DefaultChromeFlags = "--headless=new --no-sandbox --disable-gpu"

	FormFactorMobile  = "mobile"
	FormFactorDesktop = "desktop"
)

// Options は Lighthouse CLI に渡す設定です。
type Options struct {
	Binary           string
	FormFactor       string
	ThrottlingMethod string
	Locale           string
	MaxWaitForLoad   time.Duration
	ExtraHeaders     map[string]string
	ChromeFlags      string
	Categories       []string
	OutputDirectory  string
}

func (o Options) binary() string {
	if o.Binary == "" {
		return DefaultBinary
	}
	return o.Binary
}

// Args は指定URLに対する Lighthouse CLI の引数を組み立てます。
func (o Options) Args(url string) ([]string, error) {
	chromeFlags := o.ChromeFlags
	if chromeFlags == "" {
		chromeFlags = DefaultChromeFlags
	}

	args := []string{
		url,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--chrome-flags=" + chromeFlags,
	}

	switch o.FormFactor {
	case "", FormFactorMobile:
		// mobile は Lighthouse の既定値
	case FormFactorDesktop:
		args = append(args, "--preset=desktop")
	default:
		return nil, fmt.Errorf("不明なフォームファクタです: %s", o.FormFactor)
	}

	if o.ThrottlingMethod != "" {
		args = append(args, "--throttling-method="+o.ThrottlingMethod)
	}
	if o.Locale != "" {
		args = append(args, "--locale="+o.Locale)
	}
	if o.MaxWaitForLoad > 0 {
		args = append(args, fmt.Sprintf("--max-wait-for-load=%d", o.MaxWaitForLoad.Milliseconds()))
	}
	if len(o.Categories) > 0 {
		args = append(args, "--only-categories="+strings.Join(o.Categories, ","))
	}
	if len(o.ExtraHeaders) > 0 {
		headers, err := json.MarshalToString(o.ExtraHeaders)
		if err != nil {
			return nil, fmt.Errorf("追加ヘッダーのシリアライズに失敗しました: %w", err)
		}
		args = append(args, "--extra-headers="+headers)
	}
	return args, nil
}
