package lighthouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SupportedVersions は本ツールが扱える Lighthouse CLI のバージョン制約です。
// finalDisplayedUrl / --preset を前提にしています。
const SupportedVersions = ">= 9.0.0"

// DetectVersion は `lighthouse --version` を実行してバージョンを取得します。
func DetectVersion(ctx context.Context, executor Executor, binary string) (*semver.Version, error) {
	out, err := executor.Run(ctx, binary, "--version")
	if err != nil {
		return nil, fmt.Errorf("Lighthouseのバージョン取得に失敗しました: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("Lighthouseのバージョン文字列を解析できません (%q): %w", raw, err)
	}
	return v, nil
}

// CheckVersion は v が SupportedVersions を満たすかどうかを検証します。
func CheckVersion(v *semver.Version) error {
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("Lighthouse %s はサポートされていません (必要: %s)", v, SupportedVersions)
	}
	return nil
}
