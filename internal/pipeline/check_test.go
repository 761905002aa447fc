package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-lighthouse-check/pkg/config"
	"github.com/shouni/go-lighthouse-check/pkg/report"
	"github.com/shouni/go-lighthouse-check/pkg/retry"
	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

// FakeLighthouse は Executor のテスト用実装です。URLごとに performance スコアを返します。
type FakeLighthouse struct {
	version string
	scores  map[string]float64

	mu    sync.Mutex
	urls  []string
	calls int
}

func (f *FakeLighthouse) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if len(args) == 1 && args[0] == "--version" {
		return []byte(f.version + "\n"), nil
	}

	url := args[0]
	f.urls = append(f.urls, url)
	score, ok := f.scores[url]
	if !ok {
		return nil, errors.New("unknown url")
	}
	return []byte(fmt.Sprintf(`{"lighthouseVersion":%q,"finalDisplayedUrl":%q,"configSettings":{"formFactor":"mobile"},"categories":{"performance":{"score":%v}}}`, f.version, url, score)), nil
}

// MockFetcher は source.Fetcher のテスト用実装です。
type MockFetcher struct {
	bodies map[string]string
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, ok := m.bodies[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return []byte(body), nil
}

// MockPoster は notify.Poster のテスト用実装です。
type MockPoster struct {
	mu   sync.Mutex
	url  string
	data any
}

func (m *MockPoster) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url, m.data = url, data
	return []byte("ok"), nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestBuildSources(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := BuildSources(cfg, nil, nil)
	assert.ErrorContains(t, err, "処理対象のURLが一つも指定されていません")

	cfg.FeedURL = "https://blog.example/feed.xml"
	_, err = BuildSources(cfg, nil, nil)
	assert.ErrorContains(t, err, "HTTPクライアントが初期化されていません")

	cfg = config.DefaultConfig()
	cfg.URLsFile = "-"
	_, err = BuildSources(cfg, nil, nil)
	assert.ErrorContains(t, err, "標準入力が利用できません")

	cfg.URLs = []any{"https://a.example"}
	cfg.PageURL = "https://a.example/"
	cfg.URLsURL = "https://a.example/urls.json"
	sources, err := BuildSources(cfg, &MockFetcher{}, strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Len(t, sources, 4)
}

func TestCollectTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{"https://www.foo.software", []any{"blog", "https://blog.foo.software"}}
	cfg.URLsFile = "-"
	cfg.URLsURL = "https://config.example/urls.json"

	deps := Dependencies{
		Fetcher: &MockFetcher{bodies: map[string]string{"https://config.example/urls.json": `[["https://remote.example"]]`}},
		Stdin:   strings.NewReader(`[["stdin", "www.stdin.example"]]`),
	}

	targets, err := CollectTargets(context.Background(), cfg, deps)
	require.NoError(t, err)
	require.Len(t, targets, 4)
	assert.Equal(t, "https://www.foo.software", targets[0].Identifier())
	assert.Equal(t, "blog::https://blog.foo.software", targets[1].Identifier())
	assert.Equal(t, "stdin::https://www.stdin.example", targets[2].Identifier())
	assert.Equal(t, "https://remote.example", targets[3].Identifier())
}

func TestCollectTargets_Malformed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{[]any{"abc", "https://www.foo.software", "oh no"}}

	_, err := CollectTargets(context.Background(), cfg, Dependencies{})
	require.Error(t, err)
	assert.True(t, urllist.IsMalformedInput(err))
}

func TestCollectTargets_EmptyList(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLsFile = "-"

	_, err := CollectTargets(context.Background(), cfg, Dependencies{Stdin: strings.NewReader("[]")})
	assert.ErrorContains(t, err, "処理対象のURLが一つも指定されていません")
}

func TestCollectTargets_LabelsAreKept(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{
		[]any{"a::b", "https://x.example"},
		[]any{"https://label.example", "https://y.example"},
	}

	targets, err := CollectTargets(context.Background(), cfg, Dependencies{})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "a::b", targets[0].Label)
	assert.Equal(t, "https://x.example", targets[0].URL)
	assert.Equal(t, "https://label.example", targets[1].Label)
	assert.Equal(t, "https://y.example", targets[1].URL)
}

func TestCheck(t *testing.T) {
	poster := &MockPoster{}

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.URLs = []any{[]any{"abc", "https://www.foo.software"}, "https://www.google.com"}
	cfg.OutputDirectory = filepath.Join(dir, "reports")
	cfg.OutputFile = filepath.Join(dir, "results.json")
	cfg.Format = report.FormatJSON
	cfg.MinScores = map[string]int{"performance": 50}
	cfg.WebhookURL = "https://hooks.example/services/x"

	executor := &FakeLighthouse{version: "11.4.0", scores: map[string]float64{
		"https://www.foo.software": 0.95,
		"https://www.google.com":   0.88,
	}}

	var out bytes.Buffer
	results, err := Check(context.Background(), cfg, Dependencies{
		Executor:    executor,
		Poster:      poster,
		RetryConfig: fastRetry(),
		Out:         &out,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "abc", results[0].Label)
	assert.Equal(t, 95, results[0].Scores["performance"])
	assert.Equal(t, 88, results[1].Scores["performance"])
	assert.FileExists(t, filepath.Join(dir, "reports", "abc-www-foo-software.report.json"))
	assert.FileExists(t, filepath.Join(dir, "reports", "www-google-com.report.json"))

	written, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"abc"`)
	assert.Contains(t, out.String(), "完了: 成功 2 件, 失敗 0 件")

	poster.mu.Lock()
	defer poster.mu.Unlock()
	assert.Equal(t, cfg.WebhookURL, poster.url)
	assert.Contains(t, fmt.Sprint(poster.data), "Lighthouse 監査結果: 2 件")
}

func TestCheck_LabeledTargetsAuditTheirURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{
		[]any{"a::b", "https://x.example"},
		[]any{"https://label.example", "https://y.example"},
	}

	executor := &FakeLighthouse{version: "11.4.0", scores: map[string]float64{
		"https://x.example": 0.9,
		"https://y.example": 0.8,
	}}
	results, err := Check(context.Background(), cfg, Dependencies{Executor: executor, RetryConfig: fastRetry(), Out: io.Discard, SkipVersionCheck: true})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.ElementsMatch(t, []string{"https://x.example", "https://y.example"}, executor.urls)
	assert.Equal(t, "a::b", results[0].Label)
	assert.Equal(t, "https://label.example", results[1].Label)
}

func TestCheck_WebhookWithoutPoster(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{"https://www.foo.software"}
	cfg.WebhookURL = "https://hooks.example/services/x"

	executor := &FakeLighthouse{version: "11.4.0", scores: map[string]float64{"https://www.foo.software": 0.95}}
	results, err := Check(context.Background(), cfg, Dependencies{Executor: executor, RetryConfig: fastRetry(), Out: io.Discard, SkipVersionCheck: true})
	require.NoError(t, err, "通知に失敗しても監査は失敗しないこと")
	assert.Len(t, results, 1)
}

func TestCheck_ThresholdViolation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{"https://www.foo.software", "https://slow.example"}
	cfg.MinScores = map[string]int{"performance": 90}

	executor := &FakeLighthouse{version: "11.4.0", scores: map[string]float64{
		"https://www.foo.software": 0.95,
		"https://slow.example":     0.42,
	}}

	var out bytes.Buffer
	results, err := Check(context.Background(), cfg, Dependencies{Executor: executor, RetryConfig: fastRetry(), Out: &out})
	require.Error(t, err)
	require.Len(t, results, 2, "検証に失敗しても結果は返されること")

	var thresholdErr *report.ThresholdError
	require.True(t, errors.As(err, &thresholdErr))
	require.Len(t, thresholdErr.Violations, 1)
	assert.Equal(t, 42, thresholdErr.Violations[0].Score)
}

func TestCheck_UnsupportedVersion(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{"https://www.foo.software"}

	executor := &FakeLighthouse{version: "8.6.0"}
	_, err := Check(context.Background(), cfg, Dependencies{Executor: executor, Out: io.Discard})
	assert.ErrorContains(t, err, "サポートされていません")
	assert.Equal(t, 1, executor.calls, "監査は実行されないこと")
}

func TestCheck_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Format = "xml"
	_, err := Check(context.Background(), cfg, Dependencies{Out: io.Discard})
	assert.ErrorContains(t, err, "設定が不正です")
}

func TestCheck_SkipVersionCheckAndFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.URLs = []any{"https://unknown.example"}

	executor := &FakeLighthouse{version: "11.4.0", scores: map[string]float64{}}
	var out bytes.Buffer
	results, err := Check(context.Background(), cfg, Dependencies{Executor: executor, RetryConfig: fastRetry(), Out: &out, SkipVersionCheck: true})
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Error)
	assert.Equal(t, []string{"https://unknown.example"}, executor.urls)
	assert.Contains(t, out.String(), "失敗 1 件")
}
