// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value is a leaf value usable as a condition operand, a literal, or a
// column default. It is a closed sum type: every variant implements the
// unexported marker method so only types in this package can satisfy it,
// mirroring pgroll's Operation interface in pkg/migrations.
type Value interface {
	isValue()
	fmt.Stringer
}

type ValueNull struct{}

func (ValueNull) isValue()        {}
func (ValueNull) String() string  { return "NULL" }

type ValueBool bool

func (ValueBool) isValue() {}
func (v ValueBool) String() string {
	if v {
		return "true"
	}
	return "false"
}

type ValueInt int64

func (ValueInt) isValue()       {}
func (v ValueInt) String() string { return fmt.Sprintf("%d", int64(v)) }

type ValueFloat float64

func (ValueFloat) isValue()         {}
func (v ValueFloat) String() string { return formatFloat(float64(v)) }

type ValueString string

func (ValueString) isValue() {}
func (v ValueString) String() string {
	return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
}

// ValueParam is a positional parameter placeholder ($1, $2, ...). N is
// 1-based per the wire protocol's own numbering.
type ValueParam int

func (ValueParam) isValue()         {}
func (v ValueParam) String() string { return fmt.Sprintf("$%d", int(v)) }

// ValueNamedParam is a `:name` placeholder resolved to a position by
// first occurrence during transpilation.
type ValueNamedParam string

func (ValueNamedParam) isValue()         {}
func (v ValueNamedParam) String() string { return ":" + string(v) }

// ValueFunction is a raw SQL fragment inserted verbatim (e.g. "now()").
// It is never parameterized; callers are responsible for its safety.
type ValueFunction string

func (ValueFunction) isValue()         {}
func (v ValueFunction) String() string { return string(v) }

// ValueColumn references another column by name, used on the right-hand
// side of a condition to compare two columns.
type ValueColumn string

func (ValueColumn) isValue()         {}
func (v ValueColumn) String() string { return string(v) }

type ValueArray []Value

func (ValueArray) isValue() {}
func (v ValueArray) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "ARRAY[" + strings.Join(parts, ", ") + "]"
}

type ValueUUID uuid.UUID

func (ValueUUID) isValue()         {}
func (v ValueUUID) String() string { return uuid.UUID(v).String() }

// ValueNullUUID is an explicit NULL of UUID affinity, distinct from
// ValueNull in the AST; it is bound as a plain NULL parameter, with no
// type OID attached, exactly like ValueNull.
type ValueNullUUID struct{}

func (ValueNullUUID) isValue()        {}
func (ValueNullUUID) String() string  { return "NULL" }

// IntervalUnit is the unit of a Value.Interval amount.
type IntervalUnit string

const (
	IntervalSecond IntervalUnit = "second"
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
	IntervalDay    IntervalUnit = "day"
	IntervalWeek   IntervalUnit = "week"
	IntervalMonth  IntervalUnit = "month"
	IntervalYear   IntervalUnit = "year"
)

type ValueInterval struct {
	Amount int64
	Unit   IntervalUnit
}

func (ValueInterval) isValue() {}
func (v ValueInterval) String() string {
	return fmt.Sprintf("INTERVAL '%d %s'", v.Amount, v.Unit)
}

type ValueTimestamp time.Time

func (ValueTimestamp) isValue() {}
func (v ValueTimestamp) String() string {
	return "'" + time.Time(v).UTC().Format("2006-01-02 15:04:05.999999Z07:00") + "'"
}

type ValueBytes []byte

func (ValueBytes) isValue() {}
func (v ValueBytes) String() string {
	return fmt.Sprintf("'\\x%x'", []byte(v))
}

// ValueSubquery embeds a full scalar subquery. Qail is defined in this
// same package, so the back-edge is a same-package pointer, not an import
// cycle.
type ValueSubquery struct {
	Query *Qail
}

func (ValueSubquery) isValue()         {}
func (v ValueSubquery) String() string { return "(" + "<subquery>" + ")" }

// ValueExpr wraps an arbitrary Expr so it can appear wherever a Value is
// expected (e.g. a computed default).
type ValueExpr struct {
	Expr Expr
}

func (ValueExpr) isValue()         {}
func (v ValueExpr) String() string { return v.Expr.String() }

// ValueVector is a pgvector literal, rendered as `[v1,v2,...]`.
type ValueVector []float32

func (ValueVector) isValue() {}
func (v ValueVector) String() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = formatFloat(float64(f))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
