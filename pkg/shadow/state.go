// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/qail-io/qail/pkg/ast"
)

// State is the persisted form of one shadow migration, stored as a row
// in _qail_shadow_state. At most one row with Status "pending" may
// exist at a time.
type State struct {
	ID            int64
	ShadowName    string
	PrimaryURL    string
	DiffCmds      []*ast.Qail
	OldSchemaPath string
	NewSchemaPath string
	CreatedAt     time.Time
	Status        string
	CreatedByVersion string
}

const (
	StatusPending  = "pending"
	StatusPromoted = "promoted"
	StatusAborted  = "aborted"
)

// encodeDiffCmds serializes DiffCmds for the diff_cmds text column. The
// differ (pkg/differ.Diff) only ever emits Qail values built from a
// fixed, narrow shape — Action, Table, a Columns list of ExprDef/
// ExprNamed, and an optional IndexDef — so the codec here covers
// exactly that subset rather than the full recursive ast.Expr sum type;
// see DESIGN.md for why a general-purpose AST (de)serializer was judged
// out of scope for this persistence path.
func encodeDiffCmds(cmds []*ast.Qail) (string, error) {
	wire := make([]wireQail, len(cmds))
	for i, q := range cmds {
		w, err := encodeQail(q)
		if err != nil {
			return "", fmt.Errorf("shadow: encoding diff command %d (%s): %w", i, q.Action, err)
		}
		wire[i] = w
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeDiffCmds(raw string) ([]*ast.Qail, error) {
	if raw == "" {
		return nil, nil
	}
	var wire []wireQail
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("shadow: decoding diff_cmds: %w", err)
	}
	cmds := make([]*ast.Qail, len(wire))
	for i, w := range wire {
		q, err := w.decode()
		if err != nil {
			return nil, fmt.Errorf("shadow: decoding diff command %d: %w", i, err)
		}
		cmds[i] = q
	}
	return cmds, nil
}

type wireQail struct {
	Action   ast.Action       `json:"action"`
	Table    string           `json:"table,omitempty"`
	Columns  []wireExpr       `json:"columns,omitempty"`
	IndexDef *ast.IndexDef    `json:"indexDef,omitempty"`
}

type wireExpr struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name,omitempty"`
	DataType    string            `json:"dataType,omitempty"`
	Constraints []wireConstraint  `json:"constraints,omitempty"`
}

type wireConstraint struct {
	Kind   string `json:"kind"`
	Expr   string `json:"expr,omitempty"`
	Target string `json:"target,omitempty"`
}

func encodeQail(q *ast.Qail) (wireQail, error) {
	w := wireQail{Action: q.Action, Table: q.Table, IndexDef: q.IndexDef}
	for _, col := range q.Columns {
		we, err := encodeExpr(col)
		if err != nil {
			return wireQail{}, err
		}
		w.Columns = append(w.Columns, we)
	}
	return w, nil
}

func encodeExpr(e ast.Expr) (wireExpr, error) {
	switch v := e.(type) {
	case ast.ExprNamed:
		return wireExpr{Kind: "named", Name: v.Name}, nil
	case ast.ExprDef:
		we := wireExpr{Kind: "def", Name: v.Name, DataType: v.DataType}
		for _, c := range v.Constraints {
			wc, err := encodeConstraint(c)
			if err != nil {
				return wireExpr{}, err
			}
			we.Constraints = append(we.Constraints, wc)
		}
		return we, nil
	default:
		return wireExpr{}, fmt.Errorf("%T is not persistable in a shadow diff command", e)
	}
}

func encodeConstraint(c ast.Constraint) (wireConstraint, error) {
	switch v := c.(type) {
	case ast.ConstraintPrimaryKey:
		return wireConstraint{Kind: "pk"}, nil
	case ast.ConstraintUnique:
		return wireConstraint{Kind: "unique"}, nil
	case ast.ConstraintNullable:
		return wireConstraint{Kind: "nullable"}, nil
	case ast.ConstraintDefault:
		return wireConstraint{Kind: "default", Expr: v.Expr}, nil
	case ast.ConstraintReferences:
		return wireConstraint{Kind: "references", Target: v.Target}, nil
	case ast.ConstraintCheck:
		return wireConstraint{Kind: "check", Expr: joinChecks(v.Expressions)}, nil
	default:
		return wireConstraint{}, fmt.Errorf("%T is not persistable in a shadow diff command", c)
	}
}

func joinChecks(exprs []string) string {
	out := ""
	for i, e := range exprs {
		if i > 0 {
			out += ";"
		}
		out += e
	}
	return out
}

func (w wireQail) decode() (*ast.Qail, error) {
	q := &ast.Qail{Action: w.Action, Table: w.Table, IndexDef: w.IndexDef}
	for _, we := range w.Columns {
		e, err := we.decode()
		if err != nil {
			return nil, err
		}
		q.Columns = append(q.Columns, e)
	}
	return q, nil
}

func (we wireExpr) decode() (ast.Expr, error) {
	switch we.Kind {
	case "named":
		return ast.ExprNamed{Name: we.Name}, nil
	case "def":
		def := ast.ExprDef{Name: we.Name, DataType: we.DataType}
		for _, wc := range we.Constraints {
			c, err := wc.decode()
			if err != nil {
				return nil, err
			}
			def.Constraints = append(def.Constraints, c)
		}
		return def, nil
	default:
		return nil, fmt.Errorf("unknown expr kind %q", we.Kind)
	}
}

func (wc wireConstraint) decode() (ast.Constraint, error) {
	switch wc.Kind {
	case "pk":
		return ast.ConstraintPrimaryKey{}, nil
	case "unique":
		return ast.ConstraintUnique{}, nil
	case "nullable":
		return ast.ConstraintNullable{}, nil
	case "default":
		return ast.ConstraintDefault{Expr: wc.Expr}, nil
	case "references":
		return ast.ConstraintReferences{Target: wc.Target}, nil
	case "check":
		return ast.ConstraintCheck{Expressions: splitChecks(wc.Expr)}, nil
	default:
		return nil, fmt.Errorf("unknown constraint kind %q", wc.Kind)
	}
}

func splitChecks(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
