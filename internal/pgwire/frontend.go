// SPDX-License-Identifier: Apache-2.0

package pgwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// protocolVersion3 is the only startup protocol version QAIL speaks.
const protocolVersion3 = 196608 // 3 << 16 | 0

// sslRequestCode and cancelRequestCode are the magic "protocol versions"
// sent in place of a real startup message to request SSL or cancel a
// running query; both precede any type byte or length-prefixed body.
const (
	sslRequestCode    int32 = 80877103
	cancelRequestCode int32 = 80877102
)

// EncodeSSLRequest builds the fixed 8-byte SSLRequest sequence.
func EncodeSSLRequest() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], 8)
	binary.BigEndian.PutUint32(buf[4:8], uint32(sslRequestCode))
	return buf
}

// EncodeCancelRequest builds the fixed 16-byte CancelRequest sequence
// used on a fresh connection to cancel a running query on another one.
func EncodeCancelRequest(processID, secretKey int32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], 16)
	binary.BigEndian.PutUint32(buf[4:8], uint32(cancelRequestCode))
	binary.BigEndian.PutUint32(buf[8:12], uint32(processID))
	binary.BigEndian.PutUint32(buf[12:16], uint32(secretKey))
	return buf
}

// EncodeStartup builds the Startup message: protocol version then a
// sequence of null-terminated "key\0value\0" pairs, zero-terminated.
// It carries no type byte of its own.
func EncodeStartup(params map[string]string) []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, int32(protocolVersion3))
	for _, k := range []string{"user", "database"} {
		if v, ok := params[k]; ok {
			body.WriteString(k)
			body.WriteByte(0)
			body.WriteString(v)
			body.WriteByte(0)
		}
	}
	for k, v := range params {
		if k == "user" || k == "database" {
			continue
		}
		body.WriteString(k)
		body.WriteByte(0)
		body.WriteString(v)
		body.WriteByte(0)
	}
	body.WriteByte(0)

	return framelessMessage(body.Bytes())
}

func framelessMessage(body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)+4))
	copy(out[4:], body)
	return out
}

// typedMessage prepends a type byte and a self-inclusive big-endian
// length field to body.
func typedMessage(typ byte, body []byte) []byte {
	out := make([]byte, 1+4+len(body))
	out[0] = typ
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)+4))
	copy(out[5:], body)
	return out
}

// EncodePasswordMessage encodes a cleartext or pre-hashed password
// response to an AuthenticationCleartextPassword/MD5Password request.
func EncodePasswordMessage(password string) []byte {
	body := append([]byte(password), 0)
	return typedMessage(msgPassword, body)
}

// EncodeSASLInitialResponse encodes the first SCRAM message.
func EncodeSASLInitialResponse(mechanism string, data []byte) []byte {
	var body bytes.Buffer
	body.WriteString(mechanism)
	body.WriteByte(0)
	binary.Write(&body, binary.BigEndian, int32(len(data)))
	body.Write(data)
	return typedMessage(msgPassword, body.Bytes())
}

// EncodeSASLResponse encodes a subsequent SCRAM message; it carries no
// mechanism name or length prefix of its own, unlike the initial one.
func EncodeSASLResponse(data []byte) []byte {
	return typedMessage(msgPassword, data)
}

// EncodeQuery encodes a Simple Query message.
func EncodeQuery(sql string) []byte {
	body := append([]byte(sql), 0)
	return typedMessage(msgQuery, body)
}

// EncodeTerminate encodes the fixed 5-byte Terminate message.
func EncodeTerminate() []byte { return []byte{msgTerminate, 0, 0, 0, 4} }

// EncodeSync encodes the fixed 5-byte Sync message.
func EncodeSync() []byte { return []byte{msgSync, 0, 0, 0, 4} }

// EncodeParse encodes a Parse message preparing name (empty for the
// unnamed statement) to sql, with paramTypes as OID hints (0 = infer).
func EncodeParse(name, sql string, paramTypes []uint32) []byte {
	var body bytes.Buffer
	body.WriteString(name)
	body.WriteByte(0)
	body.WriteString(sql)
	body.WriteByte(0)
	binary.Write(&body, binary.BigEndian, int16(len(paramTypes)))
	for _, oid := range paramTypes {
		binary.Write(&body, binary.BigEndian, oid)
	}
	return typedMessage(msgParse, body.Bytes())
}

// EncodeBind encodes a Bind message binding params (nil entries for
// SQL NULL) to statement, opening portal. All formats are text.
func EncodeBind(portal, statement string, params [][]byte) ([]byte, error) {
	if len(params) > 1<<15-1 {
		return nil, fmt.Errorf("pgwire: too many parameters: %d", len(params))
	}
	var body bytes.Buffer
	body.WriteString(portal)
	body.WriteByte(0)
	body.WriteString(statement)
	body.WriteByte(0)
	binary.Write(&body, binary.BigEndian, int16(0)) // format codes: all text
	binary.Write(&body, binary.BigEndian, int16(len(params)))
	for _, p := range params {
		if p == nil {
			binary.Write(&body, binary.BigEndian, int32(-1))
			continue
		}
		binary.Write(&body, binary.BigEndian, int32(len(p)))
		body.Write(p)
	}
	binary.Write(&body, binary.BigEndian, int16(0)) // result format codes: all text
	return typedMessage(msgBind, body.Bytes()), nil
}

// EncodeExecute encodes an Execute message running portal. maxRows of
// 0 means unlimited.
func EncodeExecute(portal string, maxRows int32) []byte {
	var body bytes.Buffer
	body.WriteString(portal)
	body.WriteByte(0)
	binary.Write(&body, binary.BigEndian, maxRows)
	return typedMessage(msgExecute, body.Bytes())
}

// EncodeDescribe encodes a Describe message for a prepared statement
// (isPortal false) or an open portal (isPortal true).
func EncodeDescribe(isPortal bool, name string) []byte {
	var body bytes.Buffer
	if isPortal {
		body.WriteByte('P')
	} else {
		body.WriteByte('S')
	}
	body.WriteString(name)
	body.WriteByte(0)
	return typedMessage(msgDescribe, body.Bytes())
}

// EncodeClose encodes a Close message for a prepared statement
// (isPortal false) or an open portal (isPortal true).
func EncodeClose(isPortal bool, name string) []byte {
	var body bytes.Buffer
	if isPortal {
		body.WriteByte('P')
	} else {
		body.WriteByte('S')
	}
	body.WriteString(name)
	body.WriteByte(0)
	return typedMessage('C', body.Bytes())
}

// EncodeCopyData wraps raw COPY payload bytes.
func EncodeCopyData(data []byte) []byte { return typedMessage(msgCopyData, data) }

// EncodeCopyDone encodes the fixed 5-byte CopyDone message.
func EncodeCopyDone() []byte { return []byte{msgCopyDone, 0, 0, 0, 4} }

// EncodeCopyFail encodes a CopyFail message aborting an in-progress
// COPY FROM STDIN with the given client-side reason.
func EncodeCopyFail(reason string) []byte {
	body := append([]byte(reason), 0)
	return typedMessage(msgCopyFail, body)
}

// EncodeExtendedQuery builds a single pipelined Parse+Bind+Execute+Sync
// buffer for the unnamed statement/portal, avoiding a network round
// trip between the four messages. params carries nil for SQL NULL.
func EncodeExtendedQuery(sql string, params [][]byte) ([]byte, error) {
	parse := EncodeParse("", sql, nil)
	bind, err := EncodeBind("", "", params)
	if err != nil {
		return nil, err
	}
	execute := EncodeExecute("", 0)
	sync := EncodeSync()

	out := make([]byte, 0, len(parse)+len(bind)+len(execute)+len(sync))
	out = append(out, parse...)
	out = append(out, bind...)
	out = append(out, execute...)
	out = append(out, sync...)
	return out, nil
}

// appendInt16/appendInt32 append a big-endian integer onto buf without
// the intermediate allocation binary.Write(&bytes.Buffer{}, ...) costs.
func appendInt16(buf []byte, v int16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendInt32(buf []byte, v int32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// AppendParse appends a Parse message preparing name to sql onto buf
// and returns the extended slice, the append-style counterpart to
// EncodeParse used when building one large pipelined write.
func AppendParse(buf []byte, name, sql string, paramTypes []uint32) []byte {
	start := len(buf)
	buf = append(buf, msgParse, 0, 0, 0, 0)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, sql...)
	buf = append(buf, 0)
	buf = appendInt16(buf, int16(len(paramTypes)))
	for _, oid := range paramTypes {
		buf = appendInt32(buf, int32(oid))
	}
	binary.BigEndian.PutUint32(buf[start+1:start+5], uint32(len(buf)-start-1))
	return buf
}

// AppendBind appends a Bind message binding params (nil for SQL NULL)
// to statement, opening portal, onto buf. This is the zero-allocation
// append-style counterpart to EncodeBind the pipelined prepared-
// statement path writes directly into a preallocated batch buffer.
func AppendBind(buf []byte, portal, statement string, params [][]byte) ([]byte, error) {
	if len(params) > 1<<15-1 {
		return nil, fmt.Errorf("pgwire: too many parameters: %d", len(params))
	}
	start := len(buf)
	buf = append(buf, msgBind, 0, 0, 0, 0)
	buf = append(buf, portal...)
	buf = append(buf, 0)
	buf = append(buf, statement...)
	buf = append(buf, 0)
	buf = appendInt16(buf, 0) // format codes: all text
	buf = appendInt16(buf, int16(len(params)))
	for _, p := range params {
		if p == nil {
			buf = appendInt32(buf, -1)
			continue
		}
		buf = appendInt32(buf, int32(len(p)))
		buf = append(buf, p...)
	}
	buf = appendInt16(buf, 0) // result format codes: all text
	binary.BigEndian.PutUint32(buf[start+1:start+5], uint32(len(buf)-start-1))
	return buf, nil
}

// AppendExecute appends the fixed 10-byte Execute message for the
// unnamed portal with max_rows=0 (unlimited) onto buf. Portal and
// max_rows never vary on the pipelined prepared-statement path, so this
// is a literal rather than a general encoder.
func AppendExecute(buf []byte) []byte {
	return append(buf, msgExecute, 0, 0, 0, 9, 0, 0, 0, 0, 0)
}

// AppendSync appends the fixed 5-byte Sync message onto buf.
func AppendSync(buf []byte) []byte {
	return append(buf, msgSync, 0, 0, 0, 4)
}
