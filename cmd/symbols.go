/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the primitives known to the compiler",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runSymbols(cmd.OutOrStdout()))
	},
}

func runSymbols(out io.Writer) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	renderSymbols(out, reg.Symbols())
	return nil
}

func init() {
	symbolsCmd.CompletionOptions.SetDefaultShellCompDirective(cobra.ShellCompDirectiveNoFileComp)
}
