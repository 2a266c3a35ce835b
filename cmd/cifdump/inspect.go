package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cifkit/cifkit/pkg/cif"
)

var inspectJSON bool

func init() {
	cmd := newInspectCmd()
	cmd.Flags().BoolVar(&inspectJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "List the categories and keywords a file references",
		Long: `The inspect command lists every category in a file together with its
keyword names, without materializing any row data.

Example:
  cifdump inspect 1yti.cif
  cifdump inspect 1yti.bcif --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

func runInspect(path string) error {
	data, mode, err := loadInput(path)
	if err != nil {
		return err
	}
	cats, err := cif.Inspect(data, mode, cif.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	if inspectJSON {
		return printJSON(cats)
	}
	names := make([]string, 0, len(cats))
	for name := range cats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
		for _, kw := range cats[name] {
			fmt.Printf("  %s\n", kw)
		}
	}
	return nil
}
