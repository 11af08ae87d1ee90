// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strings"

	nullableopt "github.com/oapi-codegen/nullable"

	"github.com/qail-io/qail/pkg/ast"
)

// ParseDocument parses the human-readable schema document format used
// by qail.toml-adjacent *.qail.schema files:
//
//	table NAME { COL TYPE [primary_key] [not_null] [unique] [default EXPR] [references T(COL)] ... }
//	[unique] index NAME on TABLE (COL,...)
//	rename T.OLD -> T.NEW
//	transform EXPR -> T.COL
//	drop T[.COL] [confirm]
//
// Hints (rename/transform/drop) are collected onto the returned
// Schema's Migrations field for pkg/differ to consume ahead of
// structural comparison.
func ParseDocument(text string) (*Schema, error) {
	p := &docParser{lines: splitStatements(text)}
	s := New()

	for p.i = 0; p.i < len(p.lines); p.i++ {
		line := strings.TrimSpace(p.lines[p.i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "table "):
			table, consumed, err := p.parseTable(line)
			if err != nil {
				return nil, err
			}
			s.AddTable(table.Name, table)
			p.i += consumed
		case strings.HasPrefix(line, "index ") || strings.HasPrefix(line, "unique index "):
			idx, tableName, err := parseIndexLine(line)
			if err != nil {
				return nil, err
			}
			t := s.GetTable(tableName)
			if t == nil {
				return nil, fmt.Errorf("schema document: index %q references unknown table %q", idx.Name, tableName)
			}
			t.AddIndex(idx.Name, idx)
		case strings.HasPrefix(line, "rename "):
			h, err := parseRenameLine(line)
			if err != nil {
				return nil, err
			}
			s.Migrations = append(s.Migrations, h)
		case strings.HasPrefix(line, "transform "):
			h, err := parseTransformLine(line)
			if err != nil {
				return nil, err
			}
			s.Migrations = append(s.Migrations, h)
		case strings.HasPrefix(line, "drop "):
			h, err := parseDropLine(line)
			if err != nil {
				return nil, err
			}
			s.Migrations = append(s.Migrations, h)
		default:
			return nil, fmt.Errorf("schema document: unrecognized statement %q", line)
		}
	}
	return s, nil
}

type docParser struct {
	lines []string
	i     int
}

// splitStatements breaks the document into one entry per top-level
// statement, keeping a `table NAME { ... }` block's braces balanced
// across lines.
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	depth := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if depth == 0 && trimmed == "" {
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			stmts = append(stmts, cur.String())
			cur.Reset()
			depth = 0
		}
	}
	if cur.Len() > 0 {
		stmts = append(stmts, cur.String())
	}
	return stmts
}

// parseTable parses a whole `table NAME { ... }` block, already joined
// into one string by splitStatements; consumed is always 0 since the
// caller's loop iterates over pre-joined statements, not raw lines.
func (p *docParser) parseTable(block string) (*Table, int, error) {
	open := strings.IndexByte(block, '{')
	close := strings.LastIndexByte(block, '}')
	if open < 0 || close < 0 || close < open {
		return nil, 0, fmt.Errorf("schema document: unclosed table block: %q", block)
	}
	header := strings.TrimSpace(block[len("table "):open])
	name := strings.TrimSpace(header)
	if name == "" {
		return nil, 0, fmt.Errorf("schema document: table statement missing a name")
	}

	t := &Table{Name: name, Columns: map[string]*Column{}, Indexes: map[string]*Index{}, ForeignKeys: map[string]*ForeignKey{}}

	body := block[open+1 : close]
	for _, colLine := range splitColumnLines(body) {
		colLine = strings.TrimSpace(colLine)
		if colLine == "" {
			continue
		}
		col, isPK, err := parseColumnLine(colLine)
		if err != nil {
			return nil, 0, fmt.Errorf("schema document: table %q: %w", name, err)
		}
		t.AddColumn(col.Name, col)
		if isPK {
			t.PrimaryKey = append(t.PrimaryKey, col.Name)
		}
	}
	return t, 0, nil
}

// splitColumnLines splits a table body on commas/newlines that are not
// nested inside parentheses (so `default gen_random_uuid()` and
// `references orgs(id)` survive intact).
func splitColumnLines(body string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range body {
		switch r {
		case '(':
			depth++
			cur.WriteRune(r)
		case ')':
			depth--
			cur.WriteRune(r)
		case ',', '\n':
			if depth == 0 {
				flush()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func parseColumnLine(line string) (*Column, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, false, fmt.Errorf("malformed column definition %q", line)
	}
	col := &Column{Name: fields[0], ColType: ColumnType(strings.ToLower(fields[1])), Type: strings.ToLower(fields[1])}
	nullable := true
	isPK := false

	rest := strings.Join(fields[2:], " ")
	tokens := tokenizeModifiers(rest)
	for i := 0; i < len(tokens); i++ {
		tok := strings.ToLower(tokens[i])
		switch tok {
		case "primary_key":
			isPK = true
			nullable = false
		case "not_null":
			nullable = false
		case "unique":
			if err := (col.MarkUnique()); err != nil {
				return nil, false, err
			}
		case "default":
			if i+1 >= len(tokens) {
				return nil, false, fmt.Errorf("column %q: default missing an expression", col.Name)
			}
			i++
			d := tokens[i]
			if d == "null" {
				col.Default = nullableopt.NewNullNullable[string]()
			} else {
				col.Default = nullableopt.NewNullableWithValue(d)
			}
		case "references":
			if i+1 >= len(tokens) {
				return nil, false, fmt.Errorf("column %q: references missing target", col.Name)
			}
			i++
			refTable, refCol, err := parseReferenceTarget(tokens[i])
			if err != nil {
				return nil, false, fmt.Errorf("column %q: %w", col.Name, err)
			}
			_ = refTable
			_ = refCol
		default:
			return nil, false, fmt.Errorf("column %q: unrecognized modifier %q", col.Name, tok)
		}
	}
	col.Nullable = nullable
	if isPK && !col.ColType.CanBePrimaryKey() {
		return nil, false, fmt.Errorf("column %q: type %q cannot be a primary key", col.Name, col.ColType)
	}
	return col, isPK, nil
}

// tokenizeModifiers splits on whitespace but keeps a `references
// T(COL)`/`default expr(...)` fragment as one token.
func tokenizeModifiers(s string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == ' ' && depth == 0:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func parseReferenceTarget(s string) (table, column string, err error) {
	open := strings.IndexByte(s, '(')
	close := strings.IndexByte(s, ')')
	if open < 0 || close < 0 || close < open {
		return "", "", fmt.Errorf("malformed reference target %q, want T(COL)", s)
	}
	return s[:open], s[open+1 : close], nil
}

func parseIndexLine(line string) (*Index, string, error) {
	unique := false
	if strings.HasPrefix(line, "unique ") {
		unique = true
		line = strings.TrimPrefix(line, "unique ")
	}
	line = strings.TrimPrefix(line, "index ")
	onIdx := strings.Index(line, " on ")
	if onIdx < 0 {
		return nil, "", fmt.Errorf("malformed index statement %q, want 'index NAME on TABLE (COLS)'", line)
	}
	name := strings.TrimSpace(line[:onIdx])
	rest := strings.TrimSpace(line[onIdx+len(" on "):])
	open := strings.IndexByte(rest, '(')
	close := strings.LastIndexByte(rest, ')')
	if open < 0 || close < 0 || close < open {
		return nil, "", fmt.Errorf("malformed index statement %q, missing column list", line)
	}
	table := strings.TrimSpace(rest[:open])
	colsRaw := rest[open+1 : close]
	var cols []string
	for _, c := range strings.Split(colsRaw, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			cols = append(cols, c)
		}
	}
	return &Index{Name: name, Unique: unique, Columns: cols}, table, nil
}

func parseRenameLine(line string) (ast.Hint, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "rename "))
	parts := strings.SplitN(rest, "->", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed rename statement %q, want 'rename T.OLD -> T.NEW'", line)
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	return ast.HintRename{From: from, To: to}, nil
}

func parseTransformLine(line string) (ast.Hint, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "transform "))
	parts := strings.SplitN(rest, "->", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed transform statement %q, want 'transform EXPR -> T.COL'", line)
	}
	return ast.HintTransform{
		Expression: strings.TrimSpace(parts[0]),
		Target:     strings.TrimSpace(parts[1]),
	}, nil
}

func parseDropLine(line string) (ast.Hint, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "drop "))
	confirmed := false
	if idx := strings.Index(rest, "confirm"); idx >= 0 {
		confirmed = true
		rest = strings.TrimSpace(rest[:idx])
	}
	if rest == "" {
		return nil, fmt.Errorf("malformed drop statement %q, missing target", line)
	}
	return ast.HintDrop{Target: rest, Confirmed: confirmed}, nil
}
