package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shouni/go-lighthouse-check/pkg/config"
	"github.com/shouni/go-lighthouse-check/pkg/lighthouse"
)

var lighthouseBinary string

// resolveLighthousePath は check と同じ優先順位 (明示されたフラグ、設定ファイル、既定値) で
// Lighthouse CLI のパスを決定します。
func resolveLighthousePath(flags *pflag.FlagSet, configPath string) (string, error) {
	if flags.Changed("lighthouse-path") {
		return lighthouseBinary, nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return "", err
	}
	if cfg.LighthousePath == "" {
		return lighthouse.DefaultBinary, nil
	}
	return cfg.LighthousePath, nil
}

var versionCheckCmd = &cobra.Command{
	Use:   "version-check",
	Short: "インストールされている Lighthouse のバージョンを確認します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		binary, err := resolveLighthousePath(cmd.Flags(), Flags.ConfigPath)
		if err != nil {
			return err
		}

		v, err := lighthouse.DetectVersion(cmd.Context(), lighthouse.ExecExecutor{}, binary)
		if err != nil {
			return err
		}
		if err := lighthouse.CheckVersion(v); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Lighthouse %s (%s を満たしています)\n", v, lighthouse.SupportedVersions)
		return nil
	},
}

func init() {
	versionCheckCmd.Flags().StringVar(&lighthouseBinary, "lighthouse-path", lighthouse.DefaultBinary, "Lighthouse CLI のパス")
}
