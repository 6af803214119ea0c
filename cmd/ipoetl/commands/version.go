package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ipoetl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if short, _ := cmd.Flags().GetBool("short"); short {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "print the version number only")
}
