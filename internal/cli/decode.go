package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skypro1111/binspect/internal/decode"
	"github.com/skypro1111/binspect/internal/grammar"
	"github.com/skypro1111/binspect/internal/report"
)

var prettyFlag bool

var decodeCmd = &cobra.Command{
	Use:   "decode <grammar> <file>",
	Short: "Decode a file and print the JSON result tree to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, stats, err := runDecode(args[0], args[1])
		if err != nil {
			return err
		}
		return report.Encode(os.Stdout, &report.Result{Root: root, Stats: stats}, prettyFlag)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <grammar> <file>",
	Short: "Decode a file and print only the statistics summary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[1])
		if err != nil {
			return err
		}
		g, err := grammar.Lookup(args[0])
		if err != nil {
			return err
		}
		_, stats, err := decode.Run(g, data, decode.WithMaxDepth(cfg.Decode.MaxDepth))
		if err != nil {
			return err
		}
		fmt.Print(report.Summary(stats, len(data)))
		return nil
	},
}

// runDecode reads the input file and runs one decode call with the
// configured limits.
func runDecode(grammarName, path string) (*decode.Node, *decode.Stats, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}

	g, err := grammar.Lookup(grammarName)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Decoding",
		slog.String("grammar", grammarName),
		slog.String("file", path),
		slog.Int("input_bytes", len(data)),
	)

	return decode.Run(g, data, decode.WithMaxDepth(cfg.Decode.MaxDepth))
}

// readInput reads the whole file into memory, enforcing the configured size
// limit. Decoding always starts from a fully-read buffer.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	if len(data) > cfg.Decode.MaxInputBytes {
		return nil, fmt.Errorf("input file %s is %d bytes, limit is %d", path, len(data), cfg.Decode.MaxInputBytes)
	}
	return data, nil
}

func init() {
	decodeCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "indent the JSON output")
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(statsCmd)
}
