/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/tschaefer/pfqlang/internal/lang"
	"github.com/tschaefer/pfqlang/internal/registry"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(header)
	return table
}

func link(i int) string {
	if i == lang.Absent {
		return "-"
	}
	return strconv.Itoa(i)
}

func renderProgram(w io.Writer, prog *lang.Program) {
	table := newTable(w, []string{"#", "TYPE", "SYMBOL", "ARG", "SIZE", "FUN", "LEFT", "RIGHT"})
	for i, d := range prog.Descriptors {
		table.Append([]string{
			strconv.Itoa(i),
			d.Type.String(),
			d.Symbol,
			d.Arg.String(),
			strconv.Itoa(d.Arg.Len()),
			link(d.Fun),
			link(d.Left),
			link(d.Right),
		})
	}
	table.Render()
}

func renderSymbols(w io.Writer, symbols []registry.Symbol) {
	table := newTable(w, []string{"NAME", "KIND", "ARG", "SIGNATURE"})
	for _, s := range symbols {
		arg := "-"
		if !s.Arg.IsZero() {
			arg = s.Arg.Name
		}
		table.Append([]string{s.Name, s.Kind.String(), arg, s.Signature})
	}
	table.Render()
}
