package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// Violation は最低スコアを満たさなかった1件です。
// Category が空の場合は監査自体の失敗を表します。
type Violation struct {
	Target   string
	Category string
	Score    int
	Minimum  int
	Message  string
}

func (v Violation) String() string {
	if v.Category == "" {
		return fmt.Sprintf("%s: 監査に失敗しました (%s)", v.Target, v.Message)
	}
	if v.Score < 0 {
		return fmt.Sprintf("%s: %s のスコアがありません (最低 %d)", v.Target, v.Category, v.Minimum)
	}
	return fmt.Sprintf("%s: %s のスコア %d が最低値 %d を下回りました", v.Target, v.Category, v.Score, v.Minimum)
}

// ThresholdError は Validate が検出したすべての違反を保持します。
type ThresholdError struct {
	Violations []Violation
}

func (e *ThresholdError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("%d 件の基準違反があります:\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// ValidateMinScores は最低スコアの設定値 (0-100) を検証します。
func ValidateMinScores(minScores map[string]int) error {
	for category, minimum := range minScores {
		if minimum < 0 || minimum > 100 {
			return fmt.Errorf("最低スコアは0から100の範囲で指定してください (%s: %d)", category, minimum)
		}
	}
	return nil
}

// Validate は results が minScores を満たすかを検証します。
// 監査に失敗した結果は minScores に関係なく違反として扱います。
func Validate(results []types.AuditResult, minScores map[string]int) error {
	categories := make([]string, 0, len(minScores))
	for category := range minScores {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var violations []Violation
	for _, res := range results {
		name := displayName(res)
		if res.Failed() {
			violations = append(violations, Violation{Target: name, Message: res.FailureMessage()})
			continue
		}
		for _, category := range categories {
			minimum := minScores[category]
			score, ok := res.Scores[category]
			if !ok {
				violations = append(violations, Violation{Target: name, Category: category, Score: -1, Minimum: minimum})
				continue
			}
			if score < minimum {
				violations = append(violations, Violation{Target: name, Category: category, Score: score, Minimum: minimum})
			}
		}
	}

	if len(violations) > 0 {
		return &ThresholdError{Violations: violations}
	}
	return nil
}
