/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tschaefer/pfqlang/internal/wire"
)

var inspectTable bool

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Decode a wire image and print its descriptors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runInspect(cmd.OutOrStdout(), args[0], inspectTable))
	},
}

func runInspect(out io.Writer, file string, table bool) error {
	image, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	prog, err := wire.Decode(image)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	if table {
		renderProgram(out, prog)
		return nil
	}
	_, err = fmt.Fprint(out, prog)
	return err
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTable, "table", false, "Print descriptors as table")
}
