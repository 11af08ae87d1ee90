// SPDX-License-Identifier: Apache-2.0

package impact

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// title returns the one-line summary pterm boxes and CI annotations
// both use for a BreakingChange.
func (bc BreakingChange) title() string {
	switch bc.Kind {
	case ChangeDroppedTable:
		return fmt.Sprintf("table %q is dropped but still referenced", bc.Table)
	case ChangeDroppedColumn:
		return fmt.Sprintf("column %s.%s is dropped but still referenced", bc.Table, bc.Column)
	case ChangeRenamedColumn:
		return fmt.Sprintf("column %s.%s is renamed to %s but old name is still referenced", bc.Table, bc.Column, bc.NewColumn)
	default:
		return "unclassified breaking change"
	}
}

// WriteHumanReport prints one boxed block per breaking change, in the
// CLI's normal pterm-based output style, and a final summary line.
func WriteHumanReport(changes []BreakingChange) {
	if len(changes) == 0 {
		pterm.Success.Println("No breaking references found.")
		return
	}

	for _, bc := range changes {
		var lines string
		for _, ref := range bc.References {
			lines += fmt.Sprintf("%s:%d  %s\n", ref.File, ref.Line, ref.Raw)
		}
		pterm.DefaultBox.WithTitle(bc.title()).WithTitleTopLeft().Println(lines)
	}

	pterm.Warning.Printfln("%d breaking change(s) found across the scanned tree.", len(changes))
}

// WriteCIReport writes GitHub-Actions-style ::error/::warning annotations
// to w, one per code reference, grouped under a ::group:: block per
// breaking change. Dropped tables/columns are errors; renames are
// warnings since old-name access may still be valid during a grace
// period.
func WriteCIReport(w io.Writer, changes []BreakingChange) {
	for _, bc := range changes {
		fmt.Fprintf(w, "::group::%s\n", bc.title())
		level := "error"
		if bc.Kind == ChangeRenamedColumn {
			level = "warning"
		}
		for _, ref := range bc.References {
			fmt.Fprintf(w, "::%s file=%s,line=%d,title=%s::%s\n", level, ref.File, ref.Line, bc.title(), ref.Raw)
		}
		fmt.Fprintln(w, "::endgroup::")
	}
}

// ExitCode returns a non-zero process exit code when any breaking
// change was found, for CI invocations to fail the build on.
func ExitCode(changes []BreakingChange) int {
	if len(changes) == 0 {
		return 0
	}
	return 1
}
