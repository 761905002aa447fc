package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-lighthouse-check/pkg/target"
	"github.com/shouni/go-lighthouse-check/pkg/urllist"
)

var (
	urlsFile    string
	showTargets bool
)

// readURLListText は引数、--file、標準入力の順にURLリストのJSONテキストを決定します。
func readURLListText(args []string, path string, stdin io.Reader) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case path != "" && path != "-":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力の読み取りエラー: %w", err)
		}
		return string(data), nil
	}
}

var urlsCmd = &cobra.Command{
	Use:   "urls [JSON]",
	Short: "URLリストのJSONを正規化して1行ずつ表示します",
	Long: `URL文字列、[url]、[label, url] からなるJSON配列を受け取り、正規化した識別子 (url または label::url) を入力順に表示します。
引数も --file も指定されない場合は標準入力から読み込みます。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readURLListText(args, urlsFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		specs, err := urllist.Decode(text)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, spec := range specs {
			if !showTargets {
				fmt.Fprintln(out, spec.String())
				continue
			}
			t, err := target.FromSpec(spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\n", t.Label, t.URL)
		}
		return nil
	},
}

func init() {
	urlsCmd.Flags().StringVarP(&urlsFile, "file", "f", "", "URLリストのJSONファイル (- で標準入力)")
	urlsCmd.Flags().BoolVar(&showTargets, "targets", false, "ラベルとURLをタブ区切りで表示")
}
