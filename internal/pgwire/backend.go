// SPDX-License-Identifier: Apache-2.0

package pgwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MessageKind identifies a decoded backend message's concrete type.
type MessageKind int

const (
	KindAuthenticationOK MessageKind = iota
	KindAuthenticationMD5Password
	KindAuthenticationSASL
	KindAuthenticationSASLContinue
	KindAuthenticationSASLFinal
	KindParameterStatus
	KindBackendKeyData
	KindReadyForQuery
	KindRowDescription
	KindDataRow
	KindCommandComplete
	KindErrorResponse
	KindParseComplete
	KindBindComplete
	KindNoData
	KindCopyInResponse
	KindCopyOutResponse
	KindCopyData
	KindCopyDone
	KindNotificationResponse
	KindEmptyQueryResponse
	KindNoticeResponse
)

// Message is a decoded backend message. Only the fields relevant to
// Kind are populated; the rest are zero values.
type Message struct {
	Kind MessageKind

	MD5Salt           [4]byte
	SASLMechanisms    []string
	SASLData          []byte
	ParamName         string
	ParamValue        string
	ProcessID         int32
	SecretKey         int32
	TxStatus          TransactionStatus
	Fields            []FieldDescription
	Row               [][]byte
	CommandTag        string
	Error             ErrorFields
	CopyFormat        byte
	CopyColumnFormats []byte
	CopyBytes         []byte
	NotifyChannel     string
	NotifyPayload     string
}

// Decode reads one backend message from the front of buf. It returns
// the message and the number of bytes consumed. If buf does not yet
// hold a complete message, consumed is 0 and err is nil: the caller
// should read more bytes and retry.
func Decode(buf []byte) (msg *Message, consumed int, err error) {
	if len(buf) < 5 {
		return nil, 0, nil
	}

	typ := buf[0]
	length := int(binary.BigEndian.Uint32(buf[1:5]))
	if length < 4 {
		return nil, 0, fmt.Errorf("pgwire: invalid message length %d", length)
	}
	total := length + 1
	if len(buf) < total {
		return nil, 0, nil
	}
	payload := buf[5:total]

	m, err := decodeBody(typ, payload)
	if err != nil {
		return nil, 0, err
	}
	return m, total, nil
}

// DecodeZeroCopy behaves like Decode, except a DataRow's column values
// alias buf directly instead of being copied out. The returned
// Message's Row slices are only valid until the caller's next read
// grows or reallocates buf; pgconn's zero-copy pipeline API wraps them
// in a Chunk keyed to a shared refcount to make that lifetime explicit
// to callers.
func DecodeZeroCopy(buf []byte) (msg *Message, consumed int, err error) {
	if len(buf) < 5 {
		return nil, 0, nil
	}
	typ := buf[0]
	length := int(binary.BigEndian.Uint32(buf[1:5]))
	if length < 4 {
		return nil, 0, fmt.Errorf("pgwire: invalid message length %d", length)
	}
	total := length + 1
	if len(buf) < total {
		return nil, 0, nil
	}
	payload := buf[5:total]

	if typ == msgDataRow {
		m, err := decodeDataRowZeroCopy(payload)
		if err != nil {
			return nil, 0, err
		}
		return m, total, nil
	}
	m, err := decodeBody(typ, payload)
	if err != nil {
		return nil, 0, err
	}
	return m, total, nil
}

// decodeDataRowZeroCopy is decodeDataRow without the per-column copy:
// each returned slice aliases payload (and transitively buf) rather
// than owning its bytes.
func decodeDataRowZeroCopy(payload []byte) (*Message, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("pgwire: DataRow payload too short")
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	cols := make([][]byte, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("pgwire: DataRow truncated")
		}
		l := int32(binary.BigEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if l == -1 {
			cols = append(cols, nil)
			continue
		}
		if pos+int(l) > len(payload) {
			return nil, fmt.Errorf("pgwire: DataRow column data truncated")
		}
		cols = append(cols, payload[pos:pos+int(l)])
		pos += int(l)
	}
	return &Message{Kind: KindDataRow, Row: cols}, nil
}

func decodeBody(typ byte, payload []byte) (*Message, error) {
	switch typ {
	case msgAuth:
		return decodeAuth(payload)
	case msgParameterStatus:
		return decodeParameterStatus(payload)
	case msgBackendKeyData:
		return decodeBackendKeyData(payload)
	case msgReadyForQuery:
		return decodeReadyForQuery(payload)
	case msgRowDescription:
		return decodeRowDescription(payload)
	case msgDataRow:
		return decodeDataRow(payload)
	case msgCommandComplete:
		return &Message{Kind: KindCommandComplete, CommandTag: trimNull(payload)}, nil
	case msgErrorResponse:
		f, err := parseErrorFields(payload)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindErrorResponse, Error: f}, nil
	case msgParseComplete:
		return &Message{Kind: KindParseComplete}, nil
	case msgBindComplete:
		return &Message{Kind: KindBindComplete}, nil
	case msgNoData:
		return &Message{Kind: KindNoData}, nil
	case msgCopyInResponse:
		return decodeCopyResponse(payload, KindCopyInResponse)
	case msgCopyOutResponse:
		return decodeCopyResponse(payload, KindCopyOutResponse)
	case msgCopyData:
		return &Message{Kind: KindCopyData, CopyBytes: append([]byte(nil), payload...)}, nil
	case msgCopyDone:
		return &Message{Kind: KindCopyDone}, nil
	case msgNotification:
		return decodeNotification(payload)
	case msgEmptyQuery:
		return &Message{Kind: KindEmptyQueryResponse}, nil
	case msgNotice:
		f, err := parseErrorFields(payload)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindNoticeResponse, Error: f}, nil
	default:
		return nil, fmt.Errorf("pgwire: unknown backend message type %q", typ)
	}
}

func decodeAuth(payload []byte) (*Message, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("pgwire: authentication message too short")
	}
	authType := binary.BigEndian.Uint32(payload[0:4])
	switch authType {
	case authOK:
		return &Message{Kind: KindAuthenticationOK}, nil
	case authMD5Password:
		if len(payload) < 8 {
			return nil, fmt.Errorf("pgwire: MD5 salt truncated")
		}
		m := &Message{Kind: KindAuthenticationMD5Password}
		copy(m.MD5Salt[:], payload[4:8])
		return m, nil
	case authSASL:
		var mechs []string
		pos := 4
		for pos < len(payload) && payload[pos] != 0 {
			end := indexByte(payload[pos:], 0)
			if end < 0 {
				end = len(payload) - pos
			}
			mechs = append(mechs, string(payload[pos:pos+end]))
			pos += end + 1
		}
		return &Message{Kind: KindAuthenticationSASL, SASLMechanisms: mechs}, nil
	case authSASLContinue:
		return &Message{Kind: KindAuthenticationSASLContinue, SASLData: append([]byte(nil), payload[4:]...)}, nil
	case authSASLFinal:
		return &Message{Kind: KindAuthenticationSASLFinal, SASLData: append([]byte(nil), payload[4:]...)}, nil
	default:
		return nil, fmt.Errorf("pgwire: unknown authentication type %d", authType)
	}
}

func decodeParameterStatus(payload []byte) (*Message, error) {
	parts := bytes.SplitN(payload, []byte{0}, 3)
	m := &Message{Kind: KindParameterStatus}
	if len(parts) > 0 {
		m.ParamName = string(parts[0])
	}
	if len(parts) > 1 {
		m.ParamValue = string(bytes.TrimRight(parts[1], "\x00"))
	}
	return m, nil
}

func decodeBackendKeyData(payload []byte) (*Message, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("pgwire: BackendKeyData truncated")
	}
	return &Message{
		Kind:      KindBackendKeyData,
		ProcessID: int32(binary.BigEndian.Uint32(payload[0:4])),
		SecretKey: int32(binary.BigEndian.Uint32(payload[4:8])),
	}, nil
}

func decodeReadyForQuery(payload []byte) (*Message, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("pgwire: ReadyForQuery missing status byte")
	}
	switch TransactionStatus(payload[0]) {
	case TxIdle, TxInShot, TxFailed:
		return &Message{Kind: KindReadyForQuery, TxStatus: TransactionStatus(payload[0])}, nil
	default:
		return nil, fmt.Errorf("pgwire: unknown transaction status %q", payload[0])
	}
}

func decodeRowDescription(payload []byte) (*Message, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("pgwire: RowDescription payload too short")
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	fields := make([]FieldDescription, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		end := indexByte(payload[pos:], 0)
		if end < 0 {
			return nil, fmt.Errorf("pgwire: missing null terminator in field name")
		}
		name := string(payload[pos : pos+end])
		pos += end + 1

		if pos+18 > len(payload) {
			return nil, fmt.Errorf("pgwire: RowDescription field truncated")
		}
		f := FieldDescription{
			Name:         name,
			TableOID:     binary.BigEndian.Uint32(payload[pos : pos+4]),
			ColumnAttr:   int16(binary.BigEndian.Uint16(payload[pos+4 : pos+6])),
			TypeOID:      binary.BigEndian.Uint32(payload[pos+6 : pos+10]),
			TypeSize:     int16(binary.BigEndian.Uint16(payload[pos+10 : pos+12])),
			TypeModifier: int32(binary.BigEndian.Uint32(payload[pos+12 : pos+16])),
			Format:       int16(binary.BigEndian.Uint16(payload[pos+16 : pos+18])),
		}
		pos += 18
		fields = append(fields, f)
	}
	return &Message{Kind: KindRowDescription, Fields: fields}, nil
}

func decodeDataRow(payload []byte) (*Message, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("pgwire: DataRow payload too short")
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	cols := make([][]byte, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("pgwire: DataRow truncated")
		}
		l := int32(binary.BigEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if l == -1 {
			cols = append(cols, nil)
			continue
		}
		if pos+int(l) > len(payload) {
			return nil, fmt.Errorf("pgwire: DataRow column data truncated")
		}
		cols = append(cols, append([]byte(nil), payload[pos:pos+int(l)]...))
		pos += int(l)
	}
	return &Message{Kind: KindDataRow, Row: cols}, nil
}

func parseErrorFields(payload []byte) (ErrorFields, error) {
	var f ErrorFields
	i := 0
	for i < len(payload) && payload[i] != 0 {
		fieldType := payload[i]
		i++
		end := indexByte(payload[i:], 0)
		if end < 0 {
			end = 0
		}
		value := string(payload[i : i+end])
		i += end + 1

		switch fieldType {
		case 'S':
			f.Severity = value
		case 'C':
			f.Code = value
		case 'M':
			f.Message = value
		case 'D':
			f.Detail = value
		case 'H':
			f.Hint = value
		}
	}
	return f, nil
}

func decodeCopyResponse(payload []byte, kind MessageKind) (*Message, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("pgwire: empty copy response payload")
	}
	m := &Message{Kind: kind, CopyFormat: payload[0]}
	if len(payload) >= 3 {
		n := int(binary.BigEndian.Uint16(payload[1:3]))
		if len(payload) > 3 && n > 0 {
			if 3+n > len(payload) {
				n = len(payload) - 3
			}
			m.CopyColumnFormats = append([]byte(nil), payload[3:3+n]...)
		}
	}
	return m, nil
}

func decodeNotification(payload []byte) (*Message, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("pgwire: NotificationResponse too short")
	}
	pid := int32(binary.BigEndian.Uint32(payload[0:4]))
	i := 4
	chEnd := indexByte(payload[i:], 0)
	if chEnd < 0 {
		chEnd = 0
	}
	channel := string(payload[i : i+chEnd])
	i += chEnd + 1
	plEnd := indexByte(payload[i:], 0)
	if plEnd < 0 {
		plEnd = 0
	}
	body := string(payload[i : i+plEnd])
	return &Message{Kind: KindNotificationResponse, ProcessID: pid, NotifyChannel: channel, NotifyPayload: body}, nil
}

func indexByte(b []byte, c byte) int { return bytes.IndexByte(b, c) }

func trimNull(b []byte) string { return string(bytes.TrimRight(b, "\x00")) }
