// SPDX-License-Identifier: Apache-2.0

package transpile

import (
	"fmt"
	"strings"

	"github.com/qail-io/qail/pkg/ast"
)

// columnDef renders one ExprDef as a CREATE/ALTER TABLE column clause:
// name, type, NOT NULL by default unless Nullable is present, then each
// PK/UNIQUE/CHECK/DEFAULT/REFERENCES/GENERATED constraint in the order it
// appears in def.Constraints. Comments are not rendered here: COMMENT ON
// COLUMN statements for CREATE TABLE are collected separately by
// createTableStmt.
func (t *transpiler) columnDef(def ast.ExprDef) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", t.quote(def.Name), def.DataType)

	nullable := false
	for _, c := range def.Constraints {
		if _, ok := c.(ast.ConstraintNullable); ok {
			nullable = true
		}
	}
	if !nullable {
		b.WriteString(" NOT NULL")
	}

	for _, c := range def.Constraints {
		switch con := c.(type) {
		case ast.ConstraintPrimaryKey:
			b.WriteString(" PRIMARY KEY")
		case ast.ConstraintUnique:
			b.WriteString(" UNIQUE")
		case ast.ConstraintCheck:
			fmt.Fprintf(&b, " CHECK (%s)", strings.Join(con.Expressions, " AND "))
		case ast.ConstraintDefault:
			fmt.Fprintf(&b, " DEFAULT %s", con.Expr)
		case ast.ConstraintReferences:
			fmt.Fprintf(&b, " REFERENCES %s", con.Target)
		case ast.ConstraintGenerated:
			switch gen := con.Generation.(type) {
			case ast.ColumnGenerationStored:
				fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", string(gen))
			case ast.ColumnGenerationVirtual:
				fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s)", string(gen))
			}
		}
	}

	return b.String(), nil
}

func columnComment(def ast.ExprDef) (string, bool) {
	for _, c := range def.Constraints {
		if cc, ok := c.(ast.ConstraintComment); ok {
			return cc.Text, true
		}
	}
	return "", false
}

func (t *transpiler) createTableStmt(q *ast.Qail) (string, error) {
	colDefs := make([]string, 0, len(q.Columns))
	var comments []string
	for _, col := range q.Columns {
		def, ok := col.(ast.ExprDef)
		if !ok {
			return "", fmt.Errorf("transpile: CREATE TABLE columns must be ExprDef, got %T", col)
		}
		s, err := t.columnDef(def)
		if err != nil {
			return "", err
		}
		colDefs = append(colDefs, s)
		if text, ok := columnComment(def); ok {
			comments = append(comments, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS '%s'",
				t.quote(q.Table), t.quote(def.Name), strings.ReplaceAll(text, "'", "''")))
		}
	}

	for _, tc := range q.TableConstraints {
		switch con := tc.(type) {
		case ast.TableConstraintPrimaryKey:
			colDefs = append(colDefs, "PRIMARY KEY ("+quoteAll(t, con.Columns)+")")
		case ast.TableConstraintUnique:
			colDefs = append(colDefs, "UNIQUE ("+quoteAll(t, con.Columns)+")")
		}
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", t.quote(q.Table), strings.Join(colDefs, ", "))
	if len(comments) > 0 {
		stmt = stmt + ";\n" + strings.Join(comments, ";\n")
	}
	return stmt, nil
}

func quoteAll(t *transpiler, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = t.quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (t *transpiler) alterAddColumnStmt(q *ast.Qail) (string, error) {
	if len(q.Columns) != 1 {
		return "", fmt.Errorf("transpile: ALTER ADD COLUMN expects exactly one column definition")
	}
	def, ok := q.Columns[0].(ast.ExprDef)
	if !ok {
		return "", fmt.Errorf("transpile: ALTER ADD COLUMN requires an ExprDef")
	}
	colSQL, err := t.columnDef(def)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.quote(q.Table), colSQL), nil
}

func (t *transpiler) alterDropColumnStmt(q *ast.Qail) (string, error) {
	if len(q.Columns) != 1 {
		return "", fmt.Errorf("transpile: ALTER DROP COLUMN expects exactly one column reference")
	}
	name, err := columnName(q.Columns[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", t.quote(q.Table), t.quote(name)), nil
}

func (t *transpiler) alterTypeStmt(q *ast.Qail) (string, error) {
	if len(q.Columns) != 1 {
		return "", fmt.Errorf("transpile: ALTER COLUMN TYPE expects exactly one column definition")
	}
	def, ok := q.Columns[0].(ast.ExprDef)
	if !ok {
		return "", fmt.Errorf("transpile: ALTER COLUMN TYPE requires an ExprDef")
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
		t.quote(q.Table), t.quote(def.Name), def.DataType), nil
}

// renameColumnStmt detects the "old -> new" marker placed in a Named
// column by the differ and emits the corresponding RENAME COLUMN.
func (t *transpiler) renameColumnStmt(q *ast.Qail) (string, error) {
	if len(q.Columns) != 1 {
		return "", fmt.Errorf("transpile: MOD rename expects exactly one marker column")
	}
	name, err := columnName(q.Columns[0])
	if err != nil {
		return "", err
	}
	old, new, ok := strings.Cut(name, " -> ")
	if !ok {
		return "", fmt.Errorf("transpile: expected \"old -> new\" rename marker, got %q", name)
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		t.quote(q.Table), t.quote(strings.TrimSpace(old)), t.quote(strings.TrimSpace(new))), nil
}

func columnName(e ast.Expr) (string, error) {
	switch ex := e.(type) {
	case ast.ExprNamed:
		return ex.Name, nil
	case ast.ExprDef:
		return ex.Name, nil
	default:
		return "", fmt.Errorf("transpile: expected a named column reference, got %T", e)
	}
}

func (t *transpiler) createIndexStmt(q *ast.Qail) (string, error) {
	if q.IndexDef == nil {
		return "", fmt.Errorf("transpile: INDEX action requires an IndexDef")
	}
	idx := q.IndexDef

	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if idx.Concurrently {
		b.WriteString("CONCURRENTLY ")
	}
	fmt.Fprintf(&b, "%s ON %s", t.quote(idx.Name), t.quote(idx.Table))
	if idx.Method != "" {
		fmt.Fprintf(&b, " USING %s", idx.Method)
	}
	fmt.Fprintf(&b, " (%s)", quoteAll(t, idx.Columns))
	if len(idx.Include) > 0 {
		fmt.Fprintf(&b, " INCLUDE (%s)", quoteAll(t, idx.Include))
	}
	if idx.Predicate != "" {
		fmt.Fprintf(&b, " WHERE %s", idx.Predicate)
	}
	return b.String(), nil
}
