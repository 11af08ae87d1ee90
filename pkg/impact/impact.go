// SPDX-License-Identifier: Apache-2.0

// Package impact scans a codebase for references to QAIL-managed
// tables and columns and classifies which of those references break
// against a pending schema diff: a dropped table, a dropped column, or
// a renamed column the caller's code still addresses by its old name.
package impact

import (
	"context"
	"fmt"
	"strings"

	"github.com/qail-io/qail/pkg/ast"
)

// ReferenceKind classifies how a CodeReference names a table.
type ReferenceKind string

const (
	// KindQail marks a reference found in QAIL v2 surface syntax,
	// e.g. get("users").where(...).
	KindQail ReferenceKind = "qail"
	// KindLegacy marks a reference found in the legacy symbolic query
	// syntax this module's surface syntax superseded.
	KindLegacy ReferenceKind = "legacy"
	// KindRawSQL marks a reference found in an embedded raw SQL
	// string literal, parsed with a real SQL parser rather than a
	// regex.
	KindRawSQL ReferenceKind = "raw_sql"
)

// CodeReference is one occurrence of a table (and, where resolvable,
// a column) name found while scanning a source tree.
type CodeReference struct {
	File   string
	Line   int
	Kind   ReferenceKind
	Table  string
	Column string // empty when the reference only names a table
	Raw    string // the matched source snippet, for report context
}

// ChangeKind classifies a breaking schema change.
type ChangeKind string

const (
	ChangeDroppedTable  ChangeKind = "dropped_table"
	ChangeDroppedColumn ChangeKind = "dropped_column"
	ChangeRenamedColumn ChangeKind = "renamed_column"
)

// BreakingChange pairs one schema diff operation with every code
// reference it invalidates.
type BreakingChange struct {
	Kind       ChangeKind
	Table      string
	Column     string // old name, for ChangeRenamedColumn and ChangeDroppedColumn
	NewColumn  string // new name, for ChangeRenamedColumn only
	References []CodeReference
}

// Scan walks dir (skipping vendor/build directories) for CodeReferences.
func Scan(ctx context.Context, dir string) ([]CodeReference, error) {
	regexRefs, err := scanWithRegex(dir)
	if err != nil {
		return nil, fmt.Errorf("impact: regex scan: %w", err)
	}

	goRefs, err := scanGoSources(dir)
	if err != nil {
		return nil, fmt.Errorf("impact: Go AST scan: %w", err)
	}

	return append(regexRefs, goRefs...), nil
}

// Classify cross-references diffCmds (the operations pkg/differ
// produced for a pending migration) against refs, returning one
// BreakingChange per operation that invalidates at least one
// reference.
func Classify(diffCmds []*ast.Qail, refs []CodeReference) []BreakingChange {
	var out []BreakingChange

	for _, cmd := range diffCmds {
		switch cmd.Action {
		case ast.ActionDrop:
			if bc := classifyDroppedTable(cmd, refs); bc != nil {
				out = append(out, *bc)
			}
		case ast.ActionAlterDrop:
			out = append(out, classifyDroppedColumns(cmd, refs)...)
		case ast.ActionMod:
			out = append(out, classifyRenamedColumns(cmd, refs)...)
		}
	}

	return out
}

func classifyDroppedTable(cmd *ast.Qail, refs []CodeReference) *BreakingChange {
	var matches []CodeReference
	for _, r := range refs {
		if r.Table == cmd.Table {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return &BreakingChange{Kind: ChangeDroppedTable, Table: cmd.Table, References: matches}
}

func classifyDroppedColumns(cmd *ast.Qail, refs []CodeReference) []BreakingChange {
	var out []BreakingChange
	for _, col := range cmd.Columns {
		name, ok := columnName(col)
		if !ok {
			continue
		}
		var matches []CodeReference
		for _, r := range refs {
			if r.Table == cmd.Table && r.Column == name {
				matches = append(matches, r)
			}
		}
		if len(matches) > 0 {
			out = append(out, BreakingChange{Kind: ChangeDroppedColumn, Table: cmd.Table, Column: name, References: matches})
		}
	}
	return out
}

// classifyRenamedColumns decodes the differ's "oldcol -> newcol" rename
// encoding (an ActionMod command carrying a single ExprNamed column
// whose Name is that arrow-separated pair).
func classifyRenamedColumns(cmd *ast.Qail, refs []CodeReference) []BreakingChange {
	var out []BreakingChange
	for _, col := range cmd.Columns {
		named, ok := col.(ast.ExprNamed)
		if !ok {
			continue
		}
		from, to, ok := splitRename(named.Name)
		if !ok {
			continue
		}
		var matches []CodeReference
		for _, r := range refs {
			if r.Table == cmd.Table && r.Column == from {
				matches = append(matches, r)
			}
		}
		if len(matches) > 0 {
			out = append(out, BreakingChange{
				Kind: ChangeRenamedColumn, Table: cmd.Table, Column: from, NewColumn: to, References: matches,
			})
		}
	}
	return out
}

func splitRename(s string) (from, to string, ok bool) {
	const sep = " -> "
	i := strings.Index(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}

func columnName(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case ast.ExprNamed:
		return v.Name, true
	case ast.ExprDef:
		return v.Name, true
	default:
		return "", false
	}
}
