package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eta/core/dataset"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		out     string
		samples int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic fleet dataset as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			gen := cfg.Dataset.Generator()
			if cmd.Flags().Changed("samples") {
				gen.Samples = samples
			}
			if cmd.Flags().Changed("seed") {
				gen.Seed = seed
			}
			if out == "" {
				out = cfg.Dataset.Path
			}

			rows, err := dataset.Generate(gen)
			if err != nil {
				return err
			}
			if err := writeDataset(out, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (defaults to dataset.path)")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of trips (defaults to dataset.samples)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (defaults to dataset.seed)")
	return cmd
}

func writeDataset(path string, rows []dataset.Row) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return dataset.WriteCSV(f, rows)
}

func readDataset(path string) ([]dataset.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	rows, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
