// SPDX-License-Identifier: Apache-2.0

package pgwire

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// EncodeBinaryBool/Int2/Int4/Int8/Float4/Float8 render the fixed-width
// binary wire format for the corresponding OID. Text format is the
// simpler default used elsewhere in the driver; binary format exists
// for the hot paths (row scanning of numeric columns) where avoiding a
// text round trip matters.

func EncodeBinaryBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBinaryBool(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, fmt.Errorf("pgwire: bool wire value must be 1 byte, got %d", len(b))
	}
	return b[0] != 0, nil
}

func EncodeBinaryInt2(v int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

func DecodeBinaryInt2(b []byte) (int16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("pgwire: int2 wire value must be 2 bytes, got %d", len(b))
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func EncodeBinaryInt4(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func DecodeBinaryInt4(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("pgwire: int4 wire value must be 4 bytes, got %d", len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func EncodeBinaryInt8(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func DecodeBinaryInt8(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("pgwire: int8 wire value must be 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func EncodeBinaryFloat4(v float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func DecodeBinaryFloat4(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("pgwire: float4 wire value must be 4 bytes, got %d", len(b))
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func EncodeBinaryFloat8(v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func DecodeBinaryFloat8(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("pgwire: float8 wire value must be 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// EncodeBinaryUUID renders the 16 raw bytes of id; Postgres has no
// separate text/binary distinction for UUID beyond this.
func EncodeBinaryUUID(id uuid.UUID) []byte { return id[:] }

func DecodeBinaryUUID(b []byte) (uuid.UUID, error) {
	if len(b) != 16 {
		return uuid.UUID{}, fmt.Errorf("pgwire: uuid wire value must be 16 bytes, got %d", len(b))
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

// EncodeBinaryTimestamp renders t (assumed already in the right zone
// for the column's OID: local time for TIMESTAMP, UTC for
// TIMESTAMPTZ) as microseconds-since-2000-01-01 used by the Postgres
// binary timestamp formats.
func EncodeBinaryTimestamp(t time.Time) []byte {
	micros := t.Unix()*1_000_000 + int64(t.Nanosecond())/1000 - pgEpochOffsetSeconds*1_000_000
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(micros))
	return b
}

func DecodeBinaryTimestamp(b []byte) (time.Time, error) {
	if len(b) != 8 {
		return time.Time{}, fmt.Errorf("pgwire: timestamp wire value must be 8 bytes, got %d", len(b))
	}
	micros := int64(binary.BigEndian.Uint64(b))
	unixMicros := micros + pgEpochOffsetSeconds*1_000_000
	return time.Unix(unixMicros/1_000_000, (unixMicros%1_000_000)*1000).UTC(), nil
}

// jsonbVersion is the one-byte version tag Postgres prefixes every
// JSONB binary value with; only version 1 has ever shipped.
const jsonbVersion = 1

// EncodeBinaryJSONB prepends the JSONB version byte to raw JSON text.
func EncodeBinaryJSONB(json []byte) []byte {
	out := make([]byte, 1+len(json))
	out[0] = jsonbVersion
	copy(out[1:], json)
	return out
}

func DecodeBinaryJSONB(b []byte) ([]byte, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("pgwire: jsonb wire value missing version byte")
	}
	if b[0] != jsonbVersion {
		return nil, fmt.Errorf("pgwire: unsupported jsonb wire version %d", b[0])
	}
	return b[1:], nil
}
