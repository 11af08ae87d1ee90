// SPDX-License-Identifier: Apache-2.0

// Package differ computes the ordered set of ast.Qail operations needed
// to migrate a database from one schema.Schema to another, honoring
// explicit intent hints (rename/transform/drop) attached to the new
// schema before falling back to structural comparison.
package differ

import (
	"strings"

	"github.com/qail-io/qail/pkg/ast"
	"github.com/qail-io/qail/pkg/schema"
)

// Diff computes the ordered operations required to go from old to new.
// Order: hints, new tables, dropped tables, column adds/drops/type
// changes, then index adds/drops. Ties are broken by declaration order.
func Diff(old, new *schema.Schema) ([]*ast.Qail, error) {
	var cmds []*ast.Qail

	renameSources, renameTargets, dropConfirmed := applyHints(new, &cmds)

	for _, name := range new.OrderedTableNames() {
		newTable := new.Tables[name]
		if newTable.Deleted {
			continue
		}
		if old.GetTable(name) == nil {
			cmds = append(cmds, makeTable(name, newTable))
		}
	}

	for _, name := range old.OrderedTableNames() {
		oldTable := old.Tables[name]
		if oldTable.Deleted {
			continue
		}
		if new.GetTable(name) == nil && !dropConfirmed[name] {
			cmds = append(cmds, &ast.Qail{Action: ast.ActionDrop, Table: name})
		}
	}

	for _, name := range new.OrderedTableNames() {
		newTable := new.GetTable(name)
		oldTable := old.GetTable(name)
		if newTable == nil || oldTable == nil {
			continue
		}
		diffColumns(name, oldTable, newTable, renameSources, renameTargets, &cmds)
	}

	diffIndexes(old, new, &cmds)

	return cmds, nil
}

// applyHints processes new.Migrations first, intent-aware, and returns
// the set of "table.column" strings that participate in a rename (so
// the structural column diff below can skip them) plus the set of table
// names already handled by a confirmed Drop hint.
func applyHints(new *schema.Schema, cmds *[]*ast.Qail) (renameSources, renameTargets map[string]bool, dropConfirmed map[string]bool) {
	renameSources = map[string]bool{}
	renameTargets = map[string]bool{}
	dropConfirmed = map[string]bool{}

	for _, hint := range new.Migrations {
		switch h := hint.(type) {
		case ast.HintRename:
			fromTable, fromCol, ok1 := splitTableCol(h.From)
			toTable, toCol, ok2 := splitTableCol(h.To)
			if ok1 && ok2 && fromTable == toTable {
				*cmds = append(*cmds, &ast.Qail{
					Action:  ast.ActionMod,
					Table:   fromTable,
					Columns: []ast.Expr{ast.ExprNamed{Name: fromCol + " -> " + toCol}},
				})
				renameSources[h.From] = true
				renameTargets[h.To] = true
			}
		case ast.HintTransform:
			table, _, ok := splitTableCol(h.Target)
			if ok {
				*cmds = append(*cmds, &ast.Qail{
					Action:  ast.ActionSet,
					Table:   table,
					Columns: []ast.Expr{ast.ExprNamed{Name: "/* TRANSFORM: " + h.Expression + " */"}},
				})
			}
		case ast.HintDrop:
			if !h.Confirmed {
				continue
			}
			if strings.Contains(h.Target, ".") {
				table, col, ok := splitTableCol(h.Target)
				if ok {
					*cmds = append(*cmds, &ast.Qail{
						Action:  ast.ActionAlterDrop,
						Table:   table,
						Columns: []ast.Expr{ast.ExprNamed{Name: col}},
					})
				}
			} else {
				*cmds = append(*cmds, &ast.Qail{Action: ast.ActionDrop, Table: h.Target})
				dropConfirmed[h.Target] = true
			}
		}
	}
	return renameSources, renameTargets, dropConfirmed
}

func splitTableCol(s string) (table, col string, ok bool) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func makeTable(name string, t *schema.Table) *ast.Qail {
	cols := make([]ast.Expr, 0, len(t.Columns))
	for _, colName := range t.OrderedColumnNames() {
		col := t.Columns[colName]
		if col.Deleted {
			continue
		}
		cols = append(cols, ast.ExprDef{
			Name:        col.Name,
			DataType:    col.ColType.ToPgType(),
			Constraints: columnConstraints(t, col),
		})
	}
	return &ast.Qail{Action: ast.ActionMake, Table: name, Columns: cols}
}

func columnConstraints(t *schema.Table, col *schema.Column) []ast.Constraint {
	var constraints []ast.Constraint
	if slicesContains(t.PrimaryKey, col.Name) {
		constraints = append(constraints, ast.ConstraintPrimaryKey{})
	}
	if col.Nullable {
		constraints = append(constraints, ast.ConstraintNullable{})
	}
	if col.Unique {
		constraints = append(constraints, ast.ConstraintUnique{})
	}
	if expr, ok := col.DefaultExpr(); ok {
		constraints = append(constraints, ast.ConstraintDefault{Expr: expr})
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.Columns[0] == col.Name && len(fk.ReferencedColumns) == 1 {
			constraints = append(constraints, ast.ConstraintReferences{
				Target: fk.ReferencedTable + "(" + fk.ReferencedColumns[0] + ")",
			})
		}
	}
	return constraints
}

func slicesContains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func diffColumns(name string, oldTable, newTable *schema.Table, renameSources, renameTargets map[string]bool, cmds *[]*ast.Qail) {
	for _, colName := range newTable.OrderedColumnNames() {
		newCol := newTable.Columns[colName]
		if newCol.Deleted {
			continue
		}
		oldCol := oldTable.GetColumn(colName)
		if oldCol == nil {
			if renameTargets[name+"."+colName] {
				continue
			}
			*cmds = append(*cmds, &ast.Qail{
				Action: ast.ActionAlter,
				Table:  name,
				Columns: []ast.Expr{ast.ExprDef{
					Name:        newCol.Name,
					DataType:    newCol.ColType.ToPgType(),
					Constraints: newColumnConstraints(newCol),
				}},
			})
			continue
		}

		if oldCol.ColType.ToPgType() != newCol.ColType.ToPgType() {
			*cmds = append(*cmds, &ast.Qail{
				Action: ast.ActionAlterType,
				Table:  name,
				Columns: []ast.Expr{ast.ExprDef{
					Name:     newCol.Name,
					DataType: newCol.ColType.ToPgType(),
				}},
			})
		}
	}

	for _, colName := range oldTable.OrderedColumnNames() {
		oldCol := oldTable.Columns[colName]
		if oldCol.Deleted {
			continue
		}
		if newTable.GetColumn(colName) != nil {
			continue
		}
		if renameSources[name+"."+colName] {
			continue
		}
		*cmds = append(*cmds, &ast.Qail{
			Action:  ast.ActionAlterDrop,
			Table:   name,
			Columns: []ast.Expr{ast.ExprNamed{Name: oldCol.Name}},
		})
	}
}

func newColumnConstraints(col *schema.Column) []ast.Constraint {
	var constraints []ast.Constraint
	if col.Nullable {
		constraints = append(constraints, ast.ConstraintNullable{})
	}
	if col.Unique {
		constraints = append(constraints, ast.ConstraintUnique{})
	}
	if expr, ok := col.DefaultExpr(); ok {
		constraints = append(constraints, ast.ConstraintDefault{Expr: expr})
	}
	return constraints
}

func diffIndexes(old, new *schema.Schema, cmds *[]*ast.Qail) {
	for _, tableName := range new.OrderedTableNames() {
		newTable := new.Tables[tableName]
		if newTable.Deleted {
			continue
		}
		oldTable := old.GetTable(tableName)
		for _, idxName := range newTable.OrderedIndexNames() {
			idx := newTable.Indexes[idxName]
			if oldTable != nil {
				if _, exists := oldTable.Indexes[idxName]; exists {
					continue
				}
			}
			*cmds = append(*cmds, &ast.Qail{
				Action: ast.ActionIndex,
				IndexDef: &ast.IndexDef{
					Name:    idx.Name,
					Table:   tableName,
					Columns: idx.Columns,
					Unique:  idx.Unique,
					Method:  idx.Method,
				},
			})
		}
	}

	for _, tableName := range old.OrderedTableNames() {
		oldTable := old.Tables[tableName]
		if oldTable.Deleted {
			continue
		}
		newTable := new.GetTable(tableName)
		for _, idxName := range oldTable.OrderedIndexNames() {
			if newTable != nil {
				if _, exists := newTable.Indexes[idxName]; exists {
					continue
				}
			}
			*cmds = append(*cmds, &ast.Qail{Action: ast.ActionDropIndex, Table: oldTable.Indexes[idxName].Name})
		}
	}
}
