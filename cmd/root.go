/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tschaefer/pfqlang/internal/config"
	"github.com/tschaefer/pfqlang/internal/registry"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pfqlang",
	Short: "Compiler and loader for PFQ packet processing pipelines",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default /etc/pfqlang/pfqlang.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(symbolsCmd)
}

func initConfig() {
	cobra.CheckErr(config.InitConfig(cfgFile))
}

// newRegistry builds the registry from the builtin table and the symbols of
// the configuration file, without validating the rest of it.
func newRegistry() (*registry.Registry, error) {
	var extra []registry.Entry
	if err := viper.UnmarshalKey("registry.symbols", &extra); err != nil {
		return nil, err
	}
	return registry.New(extra...)
}
