// SPDX-License-Identifier: Apache-2.0

// Package transpile lowers an ast.Qail tree into dialect-specific SQL
// text plus its ordered parameter list.
package transpile

import "strings"

// Dialect selects the target SQL engine.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// quoteIdent quotes a (possibly qualified) identifier for the dialect.
// Qualified names are split on '.' and each component quoted separately,
// per the transpiler's identifier rule.
func quoteIdent(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdentPart(d, p)
	}
	return strings.Join(parts, ".")
}

func quoteIdentPart(d Dialect, part string) string {
	switch d {
	case SQLite:
		return "\"" + strings.ReplaceAll(part, "\"", "\"\"") + "\""
	default:
		return "\"" + strings.ReplaceAll(part, "\"", "\"\"") + "\""
	}
}
