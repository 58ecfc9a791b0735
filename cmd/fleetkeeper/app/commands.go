// Package app provides the entry point for the fleetkeeper application.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gaeaops/fleetkeeper/internal/logbuf"
	"github.com/gaeaops/fleetkeeper/internal/versions"
)

// logBuffer backs the control API's logs endpoint. Set by NewRootCmd.
var logBuffer *logbuf.Buffer

var rootCmd = &cobra.Command{
	Use:               "fleetkeeper",
	DisableAutoGenTag: true,
	Short:             "Keepalive fleet daemon",
	Long: `fleetkeeper keeps a fleet of accounts alive against the remote gaea
service: periodic authenticated pings per account, slow info refresh, and a
REST control API for managing the fleet.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command for the fleet daemon.
func NewRootCmd(buf *logbuf.Buffer) *cobra.Command {
	logBuffer = buf

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			slog.Error("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				slog.Error("Error formatting version info", "error", err)
				return
			}
			fmt.Println(string(output))
			return
		}

		fmt.Printf("fleetkeeper %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
	},
}

func init() {
	versionCmd.Flags().String("format", "text", "Output format (text or json)")
}
