package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxStderrInError はエラーメッセージに含める標準エラー出力の最大バイト数です。
const maxStderrInError = 2048

// Executor は外部コマンドを実行し、標準出力を返す機能のインターフェースです。
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError はコマンドが失敗した場合のエラーです。Stderr には標準エラー出力が入ります。
type ExitError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > maxStderrInError {
		stderr = "..." + stderr[len(stderr)-maxStderrInError:]
	}
	if stderr == "" {
		return fmt.Sprintf("%s の実行に失敗しました: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s の実行に失敗しました: %v: %s", e.Command, e.Err, stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecExecutor は os/exec を使う Executor の実装です。
type ExecExecutor struct {
	// Env が空でなければプロセスの環境変数に追加されます。
	Env []string
}

// Run はコマンドを実行し、標準出力を返します。
func (e ExecExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ExitError{Command: name, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
