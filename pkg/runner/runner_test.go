package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// MockAuditor は Auditor のテスト用実装です。
type MockAuditor struct {
	delay   time.Duration
	failURL string

	mu      sync.Mutex
	active  int
	maxSeen int
	calls   atomic.Int32
}

func (m *MockAuditor) Run(ctx context.Context, t target.Target) (types.AuditResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.active++
	if m.active > m.maxSeen {
		m.maxSeen = m.active
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	time.Sleep(m.delay)

	res := types.NewAuditResult(t)
	if t.URL == m.failURL {
		return res, errors.New("lighthouse crashed")
	}
	res.Scores = types.Scores{types.CategoryPerformance: 90}
	return res, nil
}

func makeTargets(n int) []target.Target {
	targets := make([]target.Target, n)
	for i := range targets {
		targets[i] = target.Target{Label: fmt.Sprint(i), URL: fmt.Sprintf("https://site%d.example", i)}
	}
	return targets
}

func TestNewParallelRunner_Default(t *testing.T) {
	p := NewParallelRunner(&MockAuditor{}, 0, 0)
	assert.Equal(t, DefaultMaxConcurrency, p.maxConcurrency)
}

func TestRunAll_PreservesOrder(t *testing.T) {
	auditor := &MockAuditor{delay: 5 * time.Millisecond}
	targets := makeTargets(8)

	results := NewParallelRunner(auditor, 4, 0).RunAll(context.Background(), targets)

	require.Len(t, results, len(targets))
	for i, res := range results {
		assert.Equal(t, targets[i].URL, res.URL)
		assert.Equal(t, targets[i].Label, res.Label)
		assert.NoError(t, res.Error)
	}
	assert.Equal(t, int32(8), auditor.calls.Load())
}

func TestRunAll_RespectsConcurrency(t *testing.T) {
	auditor := &MockAuditor{delay: 10 * time.Millisecond}

	NewParallelRunner(auditor, 2, 0).RunAll(context.Background(), makeTargets(6))

	assert.LessOrEqual(t, auditor.maxSeen, 2)
	assert.GreaterOrEqual(t, auditor.maxSeen, 1)
}

func TestRunAll_FailureDoesNotAbortBatch(t *testing.T) {
	targets := makeTargets(3)
	auditor := &MockAuditor{failURL: targets[1].URL}

	results := NewParallelRunner(auditor, 2, 0).RunAll(context.Background(), targets)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	require.Error(t, results[1].Error)
	assert.Contains(t, results[1].Error.Error(), "lighthouse crashed")
	assert.Equal(t, targets[1].URL, results[1].URL)
	assert.NoError(t, results[2].Error)
}

func TestRunAll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	auditor := &MockAuditor{}
	results := NewParallelRunner(auditor, 2, time.Millisecond).RunAll(ctx, makeTargets(3))

	require.Len(t, results, 3)
	for _, res := range results {
		require.Error(t, res.Error)
		assert.ErrorIs(t, res.Error, context.Canceled)
	}
	assert.Equal(t, int32(0), auditor.calls.Load())
}

func TestRunAll_StartInterval(t *testing.T) {
	start := time.Now()
	NewParallelRunner(&MockAuditor{}, 4, 20*time.Millisecond).RunAll(context.Background(), makeTargets(3))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
