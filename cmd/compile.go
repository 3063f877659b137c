/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tschaefer/pfqlang/internal/compiler"
)

var compileFormats = []string{"text", "table", "terms"}

type compileOptions struct {
	format    string
	file      string
	output    string
	predicate bool
}

var compileOpts = compileOptions{}

var compileCmd = &cobra.Command{
	Use:   "compile [expression]",
	Short: "Compile a pipeline expression and print its descriptors",
	Example: `  pfqlang compile '(when is_tcp (forward 1)) >-> kernel'
  pfqlang compile --format table -o web.pfq -f web.pipeline
  pfqlang compile --predicate 'is_tcp & has_port 80'`,
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runCompile(cmd.InOrStdin(), cmd.OutOrStdout(), args, &compileOpts))
	},
}

func runCompile(in io.Reader, out io.Writer, args []string, opts *compileOptions) error {
	if err := validateStringFlag("format", opts.format, compileFormats); err != nil {
		return err
	}

	expression, err := readExpression(in, args, opts.file)
	if err != nil {
		return err
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	c, err := compiler.New(reg, compiler.Options{
		MaxDescriptors: viper.GetInt("compiler.max_descriptors"),
	})
	if err != nil {
		return err
	}

	var result *compiler.Result
	if opts.predicate {
		result, err = c.CompilePredicate(expression)
	} else {
		result, err = c.Compile(expression)
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, result.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
	}

	switch opts.format {
	case "table":
		renderProgram(out, result.Program)
	case "terms":
		_, err = fmt.Fprintln(out, result.Term)
	default:
		_, err = fmt.Fprint(out, result.Program)
	}
	return err
}

// readExpression takes the expression from args, or from file when set; "-"
// reads standard input.
func readExpression(in io.Reader, args []string, file string) (string, error) {
	if file != "" && len(args) > 0 {
		return "", errors.New("expression given both as argument and file")
	}

	if file == "" {
		expression := strings.Join(args, " ")
		if strings.TrimSpace(expression) == "" {
			return "", errors.New("no expression given")
		}
		return expression, nil
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read expression: %w", err)
	}
	return string(data), nil
}

func init() {
	compileCmd.Flags().StringVar(&compileOpts.format, "format", "text", fmt.Sprintf("Output format (%s)", strings.Join(compileFormats, ", ")))
	_ = compileCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return compileFormats, cobra.ShellCompDirectiveNoFileComp
	})
	compileCmd.Flags().StringVarP(&compileOpts.file, "file", "f", "", "Read expression from file, - for stdin")
	compileCmd.Flags().StringVarP(&compileOpts.output, "output", "o", "", "Write the wire image to file")
	compileCmd.Flags().BoolVar(&compileOpts.predicate, "predicate", false, "Compile a bare predicate")
}
