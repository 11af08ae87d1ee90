// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"context"
	"strconv"
	"strings"

	"github.com/qail-io/qail/internal/pgwire"
)

// Row holds one result row's raw wire values alongside the field
// metadata needed to interpret them. Values are nil for SQL NULL.
type Row struct {
	Fields []pgwire.FieldDescription
	Cols   [][]byte
}

// Len returns the number of columns in the row.
func (r *Row) Len() int { return len(r.Cols) }

// IsNull reports whether column idx is SQL NULL.
func (r *Row) IsNull(idx int) bool { return idx >= len(r.Cols) || r.Cols[idx] == nil }

// Bytes returns the raw column bytes, or nil if NULL or out of range.
func (r *Row) Bytes(idx int) []byte {
	if idx < 0 || idx >= len(r.Cols) {
		return nil
	}
	return r.Cols[idx]
}

// String returns a text-format column as a string; ok is false if NULL.
func (r *Row) String(idx int) (value string, ok bool) {
	b := r.Bytes(idx)
	if b == nil {
		return "", false
	}
	return string(b), true
}

// Int64 parses a text-format integer column; ok is false if NULL.
func (r *Row) Int64(idx int) (value int64, ok bool, err error) {
	b := r.Bytes(idx)
	if b == nil {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, true, err
}

// Float64 parses a text-format float column; ok is false if NULL.
func (r *Row) Float64(idx int) (value float64, ok bool, err error) {
	b := r.Bytes(idx)
	if b == nil {
		return 0, false, nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	return n, true, err
}

// Bool parses a text-format boolean column ("t"/"f"/"true"/"false"/"1"/"0").
func (r *Row) Bool(idx int) (value bool, ok bool, err error) {
	b := r.Bytes(idx)
	if b == nil {
		return false, false, nil
	}
	switch string(b) {
	case "t", "true", "1":
		return true, true, nil
	case "f", "false", "0":
		return false, true, nil
	default:
		return false, true, strconv.ErrSyntax
	}
}

// Result is the outcome of one executed statement.
type Result struct {
	Fields       []pgwire.FieldDescription
	Rows         []*Row
	CommandTag   string
	RowsAffected uint64
}

// parseAffectedRows extracts the trailing row count from a
// CommandComplete tag ("INSERT 0 3", "UPDATE 2", "DELETE 1", ...).
func parseAffectedRows(tag string) uint64 {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseUint(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Exec runs sql through the extended query protocol, caching its
// prepared-statement name across calls on this connection. params are
// already text-encoded; nil means SQL NULL. Exec pipelines Parse (when
// not cached), Bind, Describe, Execute, and Sync in a single write.
func (c *Conn) Exec(ctx context.Context, sql string, params [][]byte) (*Result, error) {
	name, cached := c.stmts.nameFor(sql)

	var out []byte
	if !cached {
		out = append(out, pgwire.EncodeParse(name, sql, nil)...)
	}
	bind, err := pgwire.EncodeBind("", name, params)
	if err != nil {
		return nil, err
	}
	out = append(out, bind...)
	out = append(out, pgwire.EncodeDescribe(true, "")...)
	out = append(out, pgwire.EncodeExecute("", 0)...)
	out = append(out, pgwire.EncodeSync()...)

	if err := c.send(out); err != nil {
		return nil, err
	}
	return c.collectResult(ctx)
}

// SimpleQuery runs sql (which may contain multiple ';'-separated
// statements) through the simple query protocol. It has no parameter
// support; use Exec for parameterized statements.
func (c *Conn) SimpleQuery(ctx context.Context, sql string) (*Result, error) {
	if err := c.send(pgwire.EncodeQuery(sql)); err != nil {
		return nil, err
	}
	return c.collectResult(ctx)
}

func (c *Conn) collectResult(ctx context.Context) (*Result, error) {
	res := &Result{}
	var firstErr error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := c.readMessage()
		if err != nil {
			return nil, err
		}
		switch msg.Kind {
		case pgwire.KindRowDescription:
			res.Fields = msg.Fields
		case pgwire.KindDataRow:
			res.Rows = append(res.Rows, &Row{Fields: res.Fields, Cols: msg.Row})
		case pgwire.KindCommandComplete:
			res.CommandTag = msg.CommandTag
			res.RowsAffected = parseAffectedRows(msg.CommandTag)
		case pgwire.KindErrorResponse:
			if firstErr == nil {
				firstErr = msg.Error
			}
		case pgwire.KindNoticeResponse, pgwire.KindParseComplete, pgwire.KindBindComplete, pgwire.KindNoData, pgwire.KindEmptyQueryResponse:
			// no result-shaping information
		case pgwire.KindReadyForQuery:
			c.txStatus = msg.TxStatus
			if firstErr != nil {
				return nil, firstErr
			}
			return res, nil
		}
	}
}
