package lighthouse

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	clibase "github.com/shouni/go-cli-base"

	"github.com/shouni/go-lighthouse-check/pkg/retry"
	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// transientMarkers は再実行で回復しうる Lighthouse / Chrome のエラーコードです。
var transientMarkers = []string{
	"PROTOCOL_TIMEOUT",
	"PAGE_HUNG",
	"NO_FCP",
	"CRI_TIMEOUT",
	"ECONNREFUSED",
	"Unable to connect to Chrome",
}

// Runner は Executor を使って Lighthouse を実行し、結果を AuditResult に変換します。
type Runner struct {
	executor Executor
	opts     Options
	retryCfg retry.Config
}

// NewRunner は新しい Runner を生成します。
func NewRunner(executor Executor, opts Options, retryCfg retry.Config) (*Runner, error) {
	if executor == nil {
		return nil, fmt.Errorf("lighthouse.NewRunner: Executor cannot be nil")
	}
	// 引数の組み立てで検出できる設定ミスは先に返す
	if _, err := opts.Args("https://example.com"); err != nil {
		return nil, err
	}
	return &Runner{executor: executor, opts: opts, retryCfg: retryCfg}, nil
}

// Run は1つの Target に対して Lighthouse を実行します。
// Lighthouse がレポート内にランタイムエラーを記録した場合はエラーを返さず、AuditResult.RuntimeError に設定します。
func (r *Runner) Run(ctx context.Context, t target.Target) (types.AuditResult, error) {
	result := types.NewAuditResult(t)
	result.FormFactor = r.opts.FormFactor

	args, err := r.opts.Args(t.URL)
	if err != nil {
		return result, err
	}

	var report *Report
	op := func() error {
		report = nil
		out, err := r.executor.Run(ctx, r.opts.binary(), args...)
		if err != nil {
			return err
		}
		rep, err := ParseReport(out)
		if err != nil {
			return err
		}
		report = rep
		if rep.RuntimeError != nil {
			return rep.RuntimeError
		}
		return nil
	}

	if clibase.Flags.Verbose {
		log.Printf("Lighthouse実行: %s %s", r.opts.binary(), strings.Join(args, " "))
	}
	runErr := retry.Do(ctx, r.retryCfg, fmt.Sprintf("Lighthouse実行 (URL: %s)", t.URL), op, IsTransient)

	if report != nil {
		r.fill(&result, report)
		if err := r.writeReport(&result, report); err != nil {
			return result, err
		}
	}

	if runErr != nil {
		var rtErr *RuntimeError
		if report != nil && errors.As(runErr, &rtErr) {
			result.RuntimeError = rtErr.Error()
			return result, nil
		}
		return result, runErr
	}
	return result, nil
}

func (r *Runner) fill(result *types.AuditResult, report *Report) {
	result.FinalURL = report.FinalURL
	result.LighthouseVersion = report.LighthouseVersion
	result.FetchTime = report.FetchTime
	result.Scores = report.Scores
	if report.FormFactor != "" {
		result.FormFactor = report.FormFactor
	}
}

func (r *Runner) writeReport(result *types.AuditResult, report *Report) error {
	if r.opts.OutputDirectory == "" {
		return nil
	}
	if err := os.MkdirAll(r.opts.OutputDirectory, 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	path := filepath.Join(r.opts.OutputDirectory, result.Target.Slug()+".report.json")
	if err := os.WriteFile(path, report.Raw, 0o644); err != nil {
		return fmt.Errorf("レポートの書き込みに失敗しました (%s): %w", path, err)
	}
	result.ReportPath = path
	return nil
}

// IsTransient は err が Lighthouse の再実行で回復しうるエラーかどうかを判定します。
// retry.ShouldRetryFunc のシグネチャを満たします。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return containsMarker(rtErr.Code)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return containsMarker(exitErr.Stderr)
	}
	return false
}

func containsMarker(s string) bool {
	for _, marker := range transientMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
