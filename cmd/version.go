package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print dbaccel version and supported server flavors",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dbaccel %s (commit: %s, built: %s)\n\n", Version, CommitSHA, BuildDate)
		fmt.Fprintln(out, "Supported servers:")
		fmt.Fprintln(out, "  • MySQL 8.0.x / 8.4 LTS")
		fmt.Fprintln(out, "  • Percona Server 8.0 / 8.4")
		fmt.Fprintln(out, "  • Percona XtraDB Cluster 8.0 / 8.4")
		fmt.Fprintln(out, "  • MariaDB 10.6+")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Requires the mysqldump and mysql client binaries on PATH.")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
