package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cifkit/cifkit/pkg/cif"
)

var dumpCategory string

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVar(&dumpCategory, "category", "", "Dump only the named category")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>",
		Short: "Dump all rows of a file as JSON",
		Long: `The dump command materializes every row of every category (or one
category selected with --category) and prints them as JSON. Omitted and
unknown cells are rendered as the literals "." and "?".

Example:
  cifdump dump 1yti.cif
  cifdump dump 1yti.bcif --category _atom_site`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0])
		},
	}
}

func runDump(path string) error {
	data, mode, err := loadInput(path)
	if err != nil {
		return err
	}
	rows, err := cif.Dump(data, mode, cif.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("dumping %s: %w", path, err)
	}
	if dumpCategory != "" {
		cat, ok := rows[dumpCategory]
		if !ok {
			return fmt.Errorf("category %q not present in %s", dumpCategory, path)
		}
		return printJSON(map[string][]map[string]any{dumpCategory: cat})
	}
	return printJSON(rows)
}
