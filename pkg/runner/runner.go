package runner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/types"
)

const (
	// DefaultMaxConcurrency は同時に起動する Lighthouse プロセスの既定数です。
	// Lighthouse は1プロセスで Chrome を1つ起動するため、小さめにしています。
	DefaultMaxConcurrency = 2
	// DefaultStartInterval は各監査の開始間隔です。
	DefaultStartInterval = 500 * time.Millisecond
)

// Auditor は1つの Target を監査する機能のインターフェースです。
// *lighthouse.Runner がこれを満たします。
type Auditor interface {
	Run(ctx context.Context, t target.Target) (types.AuditResult, error)
}

// ParallelRunner は Auditor を並列に実行する構造体です。
type ParallelRunner struct {
	auditor        Auditor
	maxConcurrency int
	startInterval  time.Duration
}

// NewParallelRunner は ParallelRunner を初期化します。
// startInterval が0以下の場合は開始間隔を設けません。
func NewParallelRunner(auditor Auditor, maxConcurrency int, startInterval time.Duration) *ParallelRunner {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &ParallelRunner{
		auditor:        auditor,
		maxConcurrency: maxConcurrency,
		startInterval:  startInterval,
	}
}

// RunAll はすべての Target を監査し、入力と同じ順序で結果を返します。
// 個々の失敗は AuditResult.Error に記録され、他の Target の処理は継続されます。
func (p *ParallelRunner) RunAll(ctx context.Context, targets []target.Target) []types.AuditResult {
	results := make([]types.AuditResult, len(targets))
	var wg sync.WaitGroup

	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, p.maxConcurrency)

	var rateLimiter <-chan time.Time
	if p.startInterval > 0 {
		ticker := time.NewTicker(p.startInterval)
		defer ticker.Stop()
		rateLimiter = ticker.C
	}

	for i, t := range targets {
		if i > 0 && rateLimiter != nil {
			select {
			case <-rateLimiter:
			case <-ctx.Done():
			}
		}

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			results[i] = canceled(t, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(i int, t target.Target) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				results[i] = canceled(t, err)
				return
			}

			log.Printf("監査開始 [%d/%d]: %s", i+1, len(targets), t.Identifier())
			res, err := p.auditor.Run(ctx, t)
			if err != nil {
				res.Target, res.Label, res.URL = t, t.Label, t.URL
				res.Error = fmt.Errorf("監査に失敗しました: %w", err)
			}
			results[i] = res
		}(i, t)
	}

	wg.Wait()
	return results
}

func canceled(t target.Target, err error) types.AuditResult {
	res := types.NewAuditResult(t)
	res.Error = fmt.Errorf("監査を開始できませんでした: %w", err)
	return res
}
