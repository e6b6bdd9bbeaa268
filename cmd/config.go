package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/eta/config"
)

const redacted = "********"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if validate {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return nil
			}
			out, err := yaml.Marshal(redact(*cfg))
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "only check the configuration")
	return cmd
}

// redact masks credentials so the dump can be shared.
func redact(cfg config.Config) config.Config {
	for _, s := range []*string{
		&cfg.MQTT.Password,
		&cfg.API.JWTSecret,
		&cfg.API.Token,
		&cfg.Sentry.DSN,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return cfg
}
