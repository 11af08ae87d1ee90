// SPDX-License-Identifier: Apache-2.0

package schema

// ColumnType is QAIL's own typed vocabulary for column types, independent
// of the raw Postgres type string stored alongside it for introspected
// schemas. It exposes compile-time-checked capability queries used when
// constructing primary keys and unique/indexed columns (spec invariant:
// PrimaryKey()/Unique() must refuse types that don't support it).
type ColumnType string

const (
	ColumnUUID        ColumnType = "uuid"
	ColumnSerial      ColumnType = "serial"
	ColumnBigSerial   ColumnType = "bigserial"
	ColumnSmallInt    ColumnType = "smallint"
	ColumnInt         ColumnType = "int"
	ColumnBigInt      ColumnType = "bigint"
	ColumnFloat       ColumnType = "float"
	ColumnDouble      ColumnType = "double"
	ColumnNumeric     ColumnType = "numeric"
	ColumnText        ColumnType = "text"
	ColumnVarchar     ColumnType = "varchar"
	ColumnBool        ColumnType = "bool"
	ColumnDate        ColumnType = "date"
	ColumnTime        ColumnType = "time"
	ColumnTimestamp   ColumnType = "timestamp"
	ColumnTimestampTZ ColumnType = "timestamptz"
	ColumnInterval    ColumnType = "interval"
	ColumnJSON        ColumnType = "json"
	ColumnJSONB       ColumnType = "jsonb"
	ColumnBytea       ColumnType = "bytea"
	ColumnVector      ColumnType = "vector"
)

// CanBePrimaryKey reports whether a column of this type may participate
// in a primary key: UUID, the two serial types, and the integer types.
func (c ColumnType) CanBePrimaryKey() bool {
	switch c {
	case ColumnUUID, ColumnSerial, ColumnBigSerial, ColumnSmallInt, ColumnInt, ColumnBigInt:
		return true
	default:
		return false
	}
}

// SupportsIndexing reports whether this type can back a UNIQUE
// constraint or a btree/hash index. Everything does except JSONB and
// BYTEA, which require specialized operator classes.
func (c ColumnType) SupportsIndexing() bool {
	switch c {
	case ColumnJSONB, ColumnBytea:
		return false
	default:
		return true
	}
}

// ToPgType renders the Postgres type name used in generated DDL.
func (c ColumnType) ToPgType() string {
	switch c {
	case ColumnUUID:
		return "uuid"
	case ColumnSerial:
		return "serial"
	case ColumnBigSerial:
		return "bigserial"
	case ColumnSmallInt:
		return "smallint"
	case ColumnInt:
		return "integer"
	case ColumnBigInt:
		return "bigint"
	case ColumnFloat:
		return "real"
	case ColumnDouble:
		return "double precision"
	case ColumnNumeric:
		return "numeric"
	case ColumnText:
		return "text"
	case ColumnVarchar:
		return "varchar"
	case ColumnBool:
		return "boolean"
	case ColumnDate:
		return "date"
	case ColumnTime:
		return "time"
	case ColumnTimestamp:
		return "timestamp"
	case ColumnTimestampTZ:
		return "timestamptz"
	case ColumnInterval:
		return "interval"
	case ColumnJSON:
		return "json"
	case ColumnJSONB:
		return "jsonb"
	case ColumnBytea:
		return "bytea"
	case ColumnVector:
		return "vector"
	default:
		return string(c)
	}
}
