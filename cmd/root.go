package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eta/config"
)

type rootOptions struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "eta",
		Short:        "Trip ETA prediction service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (YAML or JSON); defaults and K_ environment variables when empty")
	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newTrainCmd(opts),
		newPredictCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the CLI.
func Execute() error { return newRootCmd().Execute() }

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
