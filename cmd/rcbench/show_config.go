package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and backend
flags have been applied. The secret key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShowConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func runShowConfig(w io.Writer, c Config) error {
	if c.Backend.SecretKey != "" {
		c.Backend.SecretKey = "********"
	}

	out, err := formatConfig(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
