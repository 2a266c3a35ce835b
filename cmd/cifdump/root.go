package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cifkit/cifkit/pkg/cif"
)

var (
	// Global flags
	verbose bool
	format  string
)

var rootCmd = &cobra.Command{
	Use:   "cifdump",
	Short: "Inspect and dump mmCIF and BinaryCIF files",
	Long: `cifdump is a tool for inspecting the contents of mmCIF and BinaryCIF
files: the categories and keywords they reference, and the rows they carry.
It is a thin consumer of the cifkit streaming reader.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			cif.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&format, "format", "auto", "Input format: text, binary, or auto (by extension)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadInput reads the named file and resolves the wire format from the
// --format flag, falling back to the .bcif extension in auto mode.
func loadInput(path string) ([]byte, cif.Mode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cif.ModeText, err
	}
	switch format {
	case "text":
		return data, cif.ModeText, nil
	case "binary":
		return data, cif.ModeBinary, nil
	case "auto":
		if strings.HasSuffix(strings.ToLower(path), ".bcif") {
			return data, cif.ModeBinary, nil
		}
		return data, cif.ModeText, nil
	default:
		return nil, cif.ModeText, fmt.Errorf("unknown format %q (want text, binary, or auto)", format)
	}
}

// printJSON outputs data as indented JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
