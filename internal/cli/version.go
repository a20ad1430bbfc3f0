package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	serviceName    = "binspect"
	serviceVersion = "1.0.0"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", serviceName, serviceVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
