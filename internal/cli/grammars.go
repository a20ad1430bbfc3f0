package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skypro1111/binspect/internal/grammar"
)

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List registered grammar names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range grammar.Names() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(grammarsCmd)
}
