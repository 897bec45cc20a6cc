// @title ichi ping API
// @version 1.0
// @description Proximity ping dispatch for ichi places.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:           "ichi",
		Short:         "ichi proximity ping service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file (env ICHI_* overrides)")

	cmd.AddCommand(newServeCommand(&cfgPath))
	cmd.AddCommand(newMigrateCommand(&cfgPath))
	return cmd
}
