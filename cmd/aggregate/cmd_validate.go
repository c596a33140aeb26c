package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surveyagg/internal/config"
)

// validateCmd lints the deployment config without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the deployment config and exit",
	Long: `Validate the deployment config and exit.

Errors are misconfigurations that would fail a run (missing DSN, unknown
backend kind); warnings flag suspicious but runnable settings. Exits
nonzero when any error is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		issues := config.Validate(cfg)
		for _, iss := range issues {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
		if config.HasError(issues) {
			return fmt.Errorf("config %s has errors", cfgPath)
		}
		fmt.Printf("config %s is valid (%d warnings)\n", cfgPath, len(issues))
		return nil
	},
}
