/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT license, see LICENSE in the project root for details.
*/
package version

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	GitCommit, Version string
)

func Release() string {
	if Version == "" {
		Version = "dev"
	}

	return Version
}

func Commit() string {
	return GitCommit
}

func Banner() string {
	return `
        __       _
  _ __ / _| __ _| | __ _ _ __   __ _
 | '_ \| |_ / _' | |/ _' | '_ \ / _' |
 | |_) |  _| (_| | | (_| | | | | (_| |
 | .__/|_|  \__, |_|\__,_|_| |_|\__, |
 |_|           |_|              |___/
 `
}

// Print writes banner, release and commit to w. The banner is colored unless
// NO_COLOR is set or stdout is not a terminal.
func Print(w io.Writer) {
	banner := color.New(color.FgBlue)
	_, _ = banner.Fprintln(w, Banner())
	_, _ = fmt.Fprintf(w, "Release: %s\n", Release())
	_, _ = fmt.Fprintf(w, "Commit:  %s\n", Commit())
}
