package urllist

import (
	"errors"
	"fmt"
)

// MalformedInputError は、入力がURLリストの契約 (JSON配列、要素は文字列または長さ1/2の配列) を
// 満たさない場合に返されるエラーです。部分的な結果は返されません。
type MalformedInputError struct {
	// Index は問題のある要素の位置です。配列全体に関するエラーの場合は -1 です。
	Index  int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "URLリストはURLまたは[ラベル, URL]の組からなる有効なJSON配列ではありません"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (要素 %d: %s)", msg, e.Index, e.Reason)
	} else if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// IsMalformedInput は err が MalformedInputError を含むかどうかを判定します。
func IsMalformedInput(err error) bool {
	var malformed *MalformedInputError
	return errors.As(err, &malformed)
}

func malformed(index int, format string, args ...any) *MalformedInputError {
	return &MalformedInputError{Index: index, Reason: fmt.Sprintf(format, args...)}
}
