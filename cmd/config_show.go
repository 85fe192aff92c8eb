package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Provider.Token != "" {
			shown.Provider.Token = "***"
		}
		if shown.Provider.Password != "" {
			shown.Provider.Password = "***"
		}
		if shown.Anthropic.Key != "" {
			shown.Anthropic.Key = "***"
		}
		shown.Server.APIKeys = maskAll(shown.Server.APIKeys)

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(shown); err != nil {
			return eris.Wrap(err, "config show")
		}
		return enc.Close()
	},
}

func maskAll(keys []string) []string {
	if len(keys) == 0 {
		return keys
	}
	masked := make([]string, len(keys))
	for i := range masked {
		masked[i] = "***"
	}
	return masked
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
