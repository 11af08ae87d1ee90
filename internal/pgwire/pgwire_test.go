// SPDX-License-Identifier: Apache-2.0

package pgwire

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQuery(t *testing.T) {
	buf := EncodeQuery("SELECT 1")
	assert.Equal(t, byte('Q'), buf[0])
	length := int32(binary.BigEndian.Uint32(buf[1:5]))
	assert.EqualValues(t, 13, length) // 4 (length) + 8 (query) + 1 (null)
	assert.Equal(t, "SELECT 1", string(buf[5:13]))
	assert.Equal(t, byte(0), buf[13])
}

func TestEncodeTerminate(t *testing.T) {
	assert.Equal(t, []byte{'X', 0, 0, 0, 4}, EncodeTerminate())
}

func TestEncodeSync(t *testing.T) {
	assert.Equal(t, []byte{'S', 0, 0, 0, 4}, EncodeSync())
}

func TestEncodeParseContainsQuery(t *testing.T) {
	buf := EncodeParse("", "SELECT $1", nil)
	assert.Equal(t, byte('P'), buf[0])
	assert.Contains(t, string(buf[5:]), "SELECT $1")
}

func TestEncodeBindNullAndValue(t *testing.T) {
	buf, err := EncodeBind("", "", [][]byte{[]byte("42"), nil})
	require.NoError(t, err)
	assert.Equal(t, byte('B'), buf[0])
	length := int32(binary.BigEndian.Uint32(buf[1:5]))
	assert.Greater(t, length, int32(4))
}

func TestEncodeExecute(t *testing.T) {
	buf := EncodeExecute("", 0)
	assert.Equal(t, byte('E'), buf[0])
	length := int32(binary.BigEndian.Uint32(buf[1:5]))
	assert.EqualValues(t, 9, length) // 4 + 1 (null) + 4 (max_rows)
}

func TestEncodeExtendedQueryContainsAllFourMessages(t *testing.T) {
	buf, err := EncodeExtendedQuery("SELECT $1", [][]byte{[]byte("hello")})
	require.NoError(t, err)

	var types []byte
	for _, b := range buf {
		types = append(types, b)
	}
	assert.Contains(t, string(types), "P")
	assert.Contains(t, string(types), "B")
	assert.Contains(t, string(types), "E")
	assert.Contains(t, string(types), "S")
}

func TestEncodeBindTooManyParameters(t *testing.T) {
	params := make([][]byte, 1<<15)
	_, err := EncodeBind("", "", params)
	assert.Error(t, err)
}

func TestSSLRequestMagicBytes(t *testing.T) {
	buf := EncodeSSLRequest()
	require.Len(t, buf, 8)
	assert.EqualValues(t, 8, binary.BigEndian.Uint32(buf[0:4]))
	assert.EqualValues(t, 80877103, binary.BigEndian.Uint32(buf[4:8]))
}

func TestCancelRequestMagicBytes(t *testing.T) {
	buf := EncodeCancelRequest(42, 99)
	require.Len(t, buf, 16)
	assert.EqualValues(t, 80877102, binary.BigEndian.Uint32(buf[4:8]))
	assert.EqualValues(t, 42, int32(binary.BigEndian.Uint32(buf[8:12])))
	assert.EqualValues(t, 99, int32(binary.BigEndian.Uint32(buf[12:16])))
}

func TestDecodeAuthenticationOk(t *testing.T) {
	payload := make([]byte, 4)
	wire := typedMessage(msgAuth, payload)
	msg, n, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, KindAuthenticationOK, msg.Kind)
}

func TestDecodeIncompleteMessageWaitsForMore(t *testing.T) {
	wire := EncodeQuery("SELECT 1")
	msg, n, err := Decode(wire[:3])
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 0, n)
}

func TestDecodeReadyForQuery(t *testing.T) {
	wire := typedMessage(msgReadyForQuery, []byte{'I'})
	msg, _, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, KindReadyForQuery, msg.Kind)
	assert.Equal(t, TxIdle, msg.TxStatus)
}

func TestDecodeRowDescriptionRoundTrip(t *testing.T) {
	var body []byte
	body = append(body, 0, 1) // one field
	body = append(body, 'i', 'd', 0)
	field := make([]byte, 18)
	binary.BigEndian.PutUint32(field[0:4], 0)     // table oid
	binary.BigEndian.PutUint16(field[4:6], 1)     // column attr
	binary.BigEndian.PutUint32(field[6:10], OIDInt4)
	binary.BigEndian.PutUint16(field[10:12], 4)
	binary.BigEndian.PutUint32(field[12:16], 0)
	binary.BigEndian.PutUint16(field[16:18], 0)
	body = append(body, field...)

	wire := typedMessage(msgRowDescription, body)
	msg, _, err := Decode(wire)
	require.NoError(t, err)
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "id", msg.Fields[0].Name)
	assert.EqualValues(t, OIDInt4, msg.Fields[0].TypeOID)
}

func TestDecodeDataRowWithNull(t *testing.T) {
	var body []byte
	body = append(body, 0, 2) // two columns
	body = append(body, 0, 0, 0, 2)
	body = append(body, '4', '2')
	body = append(body, 0xff, 0xff, 0xff, 0xff) // -1 length => NULL

	wire := typedMessage(msgDataRow, body)
	msg, _, err := Decode(wire)
	require.NoError(t, err)
	require.Len(t, msg.Row, 2)
	assert.Equal(t, []byte("42"), msg.Row[0])
	assert.Nil(t, msg.Row[1])
}

func TestDecodeErrorResponse(t *testing.T) {
	var body []byte
	body = append(body, 'S')
	body = append(body, []byte("ERROR")...)
	body = append(body, 0)
	body = append(body, 'C')
	body = append(body, []byte("42601")...)
	body = append(body, 0)
	body = append(body, 'M')
	body = append(body, []byte("syntax error")...)
	body = append(body, 0)
	body = append(body, 0) // terminator

	wire := typedMessage(msgErrorResponse, body)
	msg, _, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, KindErrorResponse, msg.Kind)
	assert.Equal(t, "ERROR", msg.Error.Severity)
	assert.Equal(t, "42601", msg.Error.Code)
	assert.Equal(t, "syntax error", msg.Error.Message)
}

func TestDecodeUnknownMessageType(t *testing.T) {
	wire := typedMessage('~', nil)
	_, _, err := Decode(wire)
	assert.Error(t, err)
}

func TestBinaryTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 30, 0, 0, time.UTC)
	encoded := EncodeBinaryTimestamp(ts)
	decoded, err := DecodeBinaryTimestamp(encoded)
	require.NoError(t, err)
	assert.True(t, ts.Equal(decoded))
}

func TestBinaryUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	encoded := EncodeBinaryUUID(id)
	decoded, err := DecodeBinaryUUID(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestBinaryJSONBRoundTrip(t *testing.T) {
	raw := []byte(`{"a":1}`)
	encoded := EncodeBinaryJSONB(raw)
	assert.Equal(t, byte(1), encoded[0])
	decoded, err := DecodeBinaryJSONB(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestBinaryJSONBRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeBinaryJSONB([]byte{2, 'x'})
	assert.Error(t, err)
}

func TestOIDNameAndArrayDetection(t *testing.T) {
	assert.Equal(t, "uuid", OIDName(OIDUUID))
	assert.Equal(t, "unknown", OIDName(999999))
	assert.True(t, IsArrayOID(OIDTextArray))
	assert.False(t, IsArrayOID(OIDText))
}

func TestAppendExecuteMatchesFixedTenByteShape(t *testing.T) {
	buf := AppendExecute(nil)
	assert.Equal(t, EncodeExecute("", 0), buf)
	assert.Len(t, buf, 10)
}

func TestAppendSyncMatchesEncodeSync(t *testing.T) {
	assert.Equal(t, EncodeSync(), AppendSync(nil))
}

func TestAppendParseMatchesEncodeParse(t *testing.T) {
	buf := AppendParse(nil, "stmt1", "SELECT $1", nil)
	assert.Equal(t, EncodeParse("stmt1", "SELECT $1", nil), buf)
}

func TestAppendBindMatchesEncodeBind(t *testing.T) {
	appended, err := AppendBind(nil, "", "stmt1", [][]byte{[]byte("42"), nil})
	require.NoError(t, err)
	encoded, err := EncodeBind("", "stmt1", [][]byte{[]byte("42"), nil})
	require.NoError(t, err)
	assert.Equal(t, encoded, appended)
}

func TestAppendBindTooManyParameters(t *testing.T) {
	params := make([][]byte, 1<<15)
	_, err := AppendBind(nil, "", "", params)
	assert.Error(t, err)
}

func TestAppendFunctionsBuildOnExistingBuffer(t *testing.T) {
	prefix := []byte{0xAA, 0xBB}
	buf := AppendParse(prefix, "", "SELECT 1", nil)
	assert.Equal(t, prefix, buf[:2])

	var err error
	buf, err = AppendBind(buf, "", "", nil)
	require.NoError(t, err)
	buf = AppendExecute(buf)
	buf = AppendSync(buf)

	assert.Equal(t, prefix, buf[:2])
	assert.Equal(t, byte('S'), buf[len(buf)-5])
}

func TestDecodeZeroCopyDataRowAliasesInput(t *testing.T) {
	var body []byte
	body = append(body, 0, 1) // one column
	body = append(body, 0, 0, 0, 2)
	body = append(body, '4', '2')
	wire := typedMessage(msgDataRow, body)

	msg, n, err := DecodeZeroCopy(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	require.Len(t, msg.Row, 1)
	assert.Equal(t, []byte("42"), msg.Row[0])

	// The returned column must alias the input buffer rather than copy
	// it: mutating wire is observable through msg.Row.
	wire[len(wire)-1] = 'x'
	assert.Equal(t, []byte("4x"), msg.Row[0])
}

func TestDecodeZeroCopyNonDataRowMatchesDecode(t *testing.T) {
	wire := typedMessage(msgReadyForQuery, []byte{'I'})
	msg, n, err := DecodeZeroCopy(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, KindReadyForQuery, msg.Kind)
	assert.Equal(t, TxIdle, msg.TxStatus)
}

func TestDecodeZeroCopyIncompleteMessageWaitsForMore(t *testing.T) {
	wire := EncodeQuery("SELECT 1")
	msg, n, err := DecodeZeroCopy(wire[:3])
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 0, n)
}
