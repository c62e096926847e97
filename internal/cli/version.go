package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"metals-dashboard/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// 不需要加载配置。
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nuser-agent: %s\n", info, version.UserAgent())
		return err
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build information as JSON")
}
