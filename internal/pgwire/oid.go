// SPDX-License-Identifier: Apache-2.0

// Package pgwire implements the PostgreSQL frontend/backend wire
// protocol version 3: message framing, encoding, and decoding. It
// performs no I/O of its own; internal/pgconn drives a net.Conn and
// feeds bytes through this package's codec.
package pgwire

// Type OIDs, see https://github.com/postgres/postgres/blob/master/src/include/catalog/pg_type.dat
const (
	OIDBool = 16
	OIDBytea = 17
	OIDChar = 18
	OIDName = 19
	OIDInt8 = 20
	OIDInt2 = 21
	OIDInt4 = 23
	OIDText = 25
	OIDOID = 26
	OIDJSON = 114
	OIDFloat4 = 700
	OIDFloat8 = 701
	OIDBPChar = 1042
	OIDVarchar = 1043
	OIDDate = 1082
	OIDTime = 1083
	OIDTimestamp = 1114
	OIDTimestampTZ = 1184
	OIDInterval = 1186
	OIDNumeric = 1700
	OIDUUID = 2950
	OIDJSONB = 3802

	OIDBoolArray = 1000
	OIDInt2Array = 1005
	OIDInt4Array = 1007
	OIDTextArray = 1009
	OIDFloat4Array = 1021
	OIDFloat8Array = 1022
	OIDInt8Array = 1016
	OIDVarcharArray = 1015
	OIDUUIDArray = 2951
	OIDJSONBArray = 3807
)

var oidNames = map[uint32]string{
	OIDBool:        "bool",
	OIDBytea:       "bytea",
	OIDChar:        "char",
	OIDName:        "name",
	OIDInt8:        "int8",
	OIDInt2:        "int2",
	OIDInt4:        "int4",
	OIDText:        "text",
	OIDOID:         "oid",
	OIDJSON:        "json",
	OIDFloat4:      "float4",
	OIDFloat8:      "float8",
	OIDBPChar:      "bpchar",
	OIDVarchar:     "varchar",
	OIDDate:        "date",
	OIDTime:        "time",
	OIDTimestamp:   "timestamp",
	OIDTimestampTZ: "timestamptz",
	OIDInterval:    "interval",
	OIDNumeric:     "numeric",
	OIDUUID:        "uuid",
	OIDJSONB:       "jsonb",
	OIDBoolArray:    "bool[]",
	OIDInt2Array:    "int2[]",
	OIDInt4Array:    "int4[]",
	OIDInt8Array:    "int8[]",
	OIDTextArray:    "text[]",
	OIDVarcharArray: "varchar[]",
	OIDFloat4Array:  "float4[]",
	OIDFloat8Array:  "float8[]",
	OIDUUIDArray:    "uuid[]",
	OIDJSONBArray:   "jsonb[]",
}

// OIDName returns a human-readable type name for oid, or "unknown".
func OIDName(oid uint32) string {
	if name, ok := oidNames[oid]; ok {
		return name
	}
	return "unknown"
}

var arrayOIDs = map[uint32]bool{
	OIDBoolArray:    true,
	OIDInt2Array:    true,
	OIDInt4Array:    true,
	OIDInt8Array:    true,
	OIDTextArray:    true,
	OIDVarcharArray: true,
	OIDFloat4Array:  true,
	OIDFloat8Array:  true,
	OIDUUIDArray:    true,
	OIDJSONBArray:   true,
}

// IsArrayOID reports whether oid names an array type.
func IsArrayOID(oid uint32) bool { return arrayOIDs[oid] }

// pgEpochOffsetSeconds is the number of seconds between the Unix epoch
// (1970-01-01) and the Postgres binary timestamp epoch (2000-01-01 UTC),
// used to convert timestamp/timestamptz binary wire values.
const pgEpochOffsetSeconds = 946684800
