package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

// Source は監査対象の Target のリストを提供します。
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]target.Target, error)
}

// Fetcher は、URLから生のバイト配列を取得する機能のインターフェースです。
// *httpkit.Client がこれを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// CollectAll はすべての Source から Target を集め、Source の順に連結します。
func CollectAll(ctx context.Context, sources ...Source) ([]target.Target, error) {
	var targets []target.Target
	for _, src := range sources {
		if src == nil {
			continue
		}
		collected, err := src.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s からの取得に失敗しました: %w", src.Name(), err)
		}
		targets = append(targets, collected...)
	}
	return targets, nil
}

// JSONSource はJSONテキスト、ファイル、または Reader からURLリストを読み込みます。
// 優先順位は Text、Path、Reader の順です。
type JSONSource struct {
	Text   string
	Path   string
	Reader io.Reader
}

func (s *JSONSource) Name() string {
	if s.Path != "" {
		return "JSONファイル " + s.Path
	}
	return "JSON"
}

func (s *JSONSource) Collect(_ context.Context) ([]target.Target, error) {
	text, err := s.read()
	if err != nil {
		return nil, err
	}
	return decodeTargets(text)
}

func (s *JSONSource) read() (string, error) {
	switch {
	case s.Text != "":
		return s.Text, nil
	case s.Path != "":
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return "", fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
		}
		return string(data), nil
	case s.Reader != nil:
		data, err := io.ReadAll(s.Reader)
		if err != nil {
			return "", fmt.Errorf("入力の読み込みに失敗しました: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("JSONの入力が指定されていません")
	}
}

// RemoteJSONSource はHTTPで取得したJSONのURLリストを読み込みます。
type RemoteJSONSource struct {
	Fetcher Fetcher
	URL     string
}

func (s *RemoteJSONSource) Name() string { return "リモートJSON " + s.URL }

func (s *RemoteJSONSource) Collect(ctx context.Context) ([]target.Target, error) {
	body, err := s.Fetcher.FetchBytes(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return decodeTargets(string(body))
}

// decodeTargets はURLリストのJSONを Spec にデコードし、そのまま Target にします。
// label::url の文字列を経由しないため、ラベルに区切り文字列やURLが含まれていても壊れません。
func decodeTargets(text string) ([]target.Target, error) {
	specs, err := urllist.Decode(text)
	if err != nil {
		return nil, err
	}
	return target.FromSpecs(specs)
}
