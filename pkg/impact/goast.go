// SPDX-License-Identifier: Apache-2.0

package impact

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	pgq "github.com/xataio/pg_query_go/v6"
)

// sqlCallNames are method names whose string-literal arguments are each
// treated as a candidate raw SQL statement.
var sqlCallNames = map[string]bool{
	"Exec": true, "SimpleQuery": true, "Query": true, "QueryRow": true,
	"QueryContext": true, "ExecContext": true, "QueryRowContext": true,
}

// scanGoSources walks dir for .go files and uses go/parser plus
// golang.org/x/tools/go/ast/inspector to find string-literal arguments
// to SQL-executing calls, then parses each literal with pg_query_go to
// extract the table it touches. This catches raw SQL the line-based
// regex pass in scanner.go would miss across multi-line calls, and
// avoids false positives on text that merely looks SQL-shaped.
func scanGoSources(dir string) ([]CodeReference, error) {
	var refs []CodeReference

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}

		fileRefs, ferr := scanGoFile(path)
		if ferr != nil {
			return nil // not valid Go, or unreadable: skip rather than abort the scan
		}
		refs = append(refs, fileRefs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func scanGoFile(path string) ([]CodeReference, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var refs []CodeReference
	insp := inspector.New([]*ast.File{file})
	nodeFilter := []ast.Node{(*ast.CallExpr)(nil)}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !sqlCallNames[sel.Sel.Name] {
			return
		}

		for _, arg := range call.Args {
			lit, ok := arg.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			sql, err := strconv.Unquote(lit.Value)
			if err != nil {
				continue
			}
			if !looksLikeSQL(sql) {
				continue
			}

			pos := fset.Position(lit.Pos())
			for _, table := range tablesReferencedBy(sql) {
				refs = append(refs, CodeReference{
					File: path, Line: pos.Line, Kind: KindRawSQL,
					Table: table, Raw: strings.TrimSpace(sql),
				})
			}
		}
	})

	return refs, nil
}

func looksLikeSQL(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, kw := range []string{"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "ALTER ", "DROP ", "CREATE "} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// tablesReferencedBy parses sql with pg_query_go and returns the
// primary table named by the statement, when it is one of the shapes
// this module can reliably resolve a single table from.
func tablesReferencedBy(sql string) []string {
	tree, err := pgq.Parse(sql)
	if err != nil || len(tree.GetStmts()) == 0 {
		return nil
	}

	var tables []string
	for _, raw := range tree.GetStmts() {
		node := raw.GetStmt().GetNode()
		switch n := node.(type) {
		case *pgq.Node_CreateStmt:
			tables = append(tables, n.CreateStmt.GetRelation().GetRelname())
		case *pgq.Node_AlterTableStmt:
			tables = append(tables, n.AlterTableStmt.GetRelation().GetRelname())
		case *pgq.Node_InsertStmt:
			tables = append(tables, n.InsertStmt.GetRelation().GetRelname())
		case *pgq.Node_UpdateStmt:
			tables = append(tables, n.UpdateStmt.GetRelation().GetRelname())
		case *pgq.Node_DeleteStmt:
			tables = append(tables, n.DeleteStmt.GetRelation().GetRelname())
		case *pgq.Node_SelectStmt:
			for _, from := range n.SelectStmt.GetFromClause() {
				if rv, ok := from.GetNode().(*pgq.Node_RangeVar); ok {
					tables = append(tables, rv.RangeVar.GetRelname())
				}
			}
		case *pgq.Node_DropStmt:
			if n.DropStmt.GetRemoveType() != pgq.ObjectType_OBJECT_TABLE {
				continue
			}
			for _, obj := range n.DropStmt.GetObjects() {
				items := obj.GetList().GetItems()
				if len(items) == 0 {
					continue
				}
				tables = append(tables, items[len(items)-1].GetString_().GetSval())
			}
		}
	}
	return tables
}
