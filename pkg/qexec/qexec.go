// SPDX-License-Identifier: Apache-2.0

// Package qexec glues pkg/transpile to internal/pgconn: it transpiles an
// ast.Qail, text-encodes its parameters for the wire, and runs the
// result through a connection's extended query protocol. pkg/shadow
// runs its migration commands through this path; the outbox worker
// (pkg/outbox) writes its own SQL text.
package qexec

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/qail-io/qail/internal/pgconn"
	"github.com/qail-io/qail/pkg/ast"
	"github.com/qail-io/qail/pkg/transpile"
)

// Run transpiles q for dialect and executes it on conn, returning the
// raw wire result. Named parameters are not supported on this path
// (transpile.Result.NamedParams is for callers binding values by name
// themselves); every ast.Qail produced by pkg/differ and pkg/shadow
// carries only positional/literal values.
func Run(ctx context.Context, conn *pgconn.Conn, dialect transpile.Dialect, q *ast.Qail) (*pgconn.Result, error) {
	res, err := transpile.Transpile(q, dialect)
	if err != nil {
		return nil, fmt.Errorf("qexec: transpile: %w", err)
	}
	params, err := EncodeParams(res.Params)
	if err != nil {
		return nil, fmt.Errorf("qexec: encode params: %w", err)
	}
	return conn.Exec(ctx, res.SQL, params)
}

// EncodeParams text-encodes a transpiled parameter list for the wire.
// nil entries bind SQL NULL.
func EncodeParams(values []ast.Value) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := EncodeParam(v)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i+1, err)
		}
		out[i] = b
	}
	return out, nil
}

// EncodeParam renders one ast.Value in Postgres text format, the format
// the extended protocol uses for parameters by default. Unlike
// ast.Value.String(), this never produces SQL-quoted literals — it is
// the bare text the server parses for the column's type.
func EncodeParam(v ast.Value) ([]byte, error) {
	switch val := v.(type) {
	case ast.ValueNull, ast.ValueNullUUID:
		return nil, nil
	case ast.ValueBool:
		if val {
			return []byte("t"), nil
		}
		return []byte("f"), nil
	case ast.ValueInt:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case ast.ValueFloat:
		return strconv.AppendFloat(nil, float64(val), 'g', -1, 64), nil
	case ast.ValueString:
		return []byte(string(val)), nil
	case ast.ValueUUID:
		return []byte(val.String()), nil
	case ast.ValueBytes:
		return []byte(val), nil
	case ast.ValueTimestamp:
		return []byte(time.Time(val).UTC().Format("2006-01-02 15:04:05.999999Z07:00")), nil
	case ast.ValueInterval:
		return []byte(fmt.Sprintf("%d %s", val.Amount, val.Unit)), nil
	case ast.ValueFunction:
		return nil, fmt.Errorf("cannot bind raw SQL fragment %q as a parameter", string(val))
	case ast.ValueColumn:
		return nil, fmt.Errorf("cannot bind column reference %q as a parameter", string(val))
	case ast.ValueArray:
		parts := make([]string, len(val))
		for i, e := range val {
			b, err := EncodeParam(e)
			if err != nil {
				return nil, err
			}
			parts[i] = arrayElementText(b)
		}
		s := "{"
		for i, p := range parts {
			if i > 0 {
				s += ","
			}
			s += p
		}
		s += "}"
		return []byte(s), nil
	case ast.ValueVector:
		return []byte(val.String()), nil
	default:
		return nil, fmt.Errorf("qexec: %T is not encodable as a wire parameter", v)
	}
}

func arrayElementText(b []byte) string {
	if b == nil {
		return "NULL"
	}
	return `"` + string(b) + `"`
}
