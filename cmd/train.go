package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eta/core/dataset"
	"github.com/kilianp07/eta/core/regression"
	"github.com/kilianp07/eta/core/training"
	"github.com/kilianp07/eta/infra/logger"
	"github.com/kilianp07/eta/infra/modelstore"
	"github.com/kilianp07/eta/report"
)

func newTrainCmd(opts *rootOptions) *cobra.Command {
	var data, out, algorithm, reportPath string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model on a CSV dataset and save the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			tc, err := cfg.Training.Trainer()
			if err != nil {
				return err
			}
			if algorithm != "" {
				if tc.Algorithm, err = regression.ParseKind(algorithm); err != nil {
					return err
				}
			}
			if data == "" {
				data = cfg.Dataset.Path
			}
			if out == "" {
				out = cfg.Model.Path
			}

			log := logger.New("train")
			rows, err := readDataset(data)
			if err != nil {
				return err
			}
			log.Infof("training %s on %d rows from %s", tc.Algorithm, len(rows), data)
			m, meta, err := training.Train(rows, tc)
			if err != nil {
				return err
			}
			if err := modelstore.NewFileStore(out).Save(m, meta); err != nil {
				return err
			}
			ev := meta.Evaluation
			fmt.Fprintf(cmd.OutOrStdout(), "model %s (%s) saved to %s\nR² %.4f  RMSE %.3f  MAE %.3f  (train %d, test %d)\n",
				meta.ID, meta.Kind, out, ev.R2, ev.RMSE, ev.MAE, ev.TrainRows, ev.TestRows)

			if reportPath == "" {
				return nil
			}
			// Same seed and ratio reproduce the hold-out rows Train scored.
			_, test, err := training.Split(rows, tc.TestRatio, tc.Seed)
			if err != nil {
				return err
			}
			if err := writeReport(reportPath, m, meta, test); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", reportPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "input CSV (defaults to dataset.path)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact path (defaults to model.path)")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "gbrt or linear (defaults to training.algorithm)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write an HTML evaluation report to this path")
	return cmd
}

func writeReport(path string, m regression.Model, meta regression.Metadata, test []dataset.Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.Render(f, m, meta, test)
}
