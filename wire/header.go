package wire

import (
	"encoding/binary"
	"errors"

	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// AgentHeaderLen is the length in bytes of the fixed Agent header:
// kind(1) | unit(4) | period_us(4) | ts_us(8).
const AgentHeaderLen = 17

// TrailerLen is the length in bytes of the trailer: src_port(2) | value_len(2).
const TrailerLen = 4

// ProtocolHeaderLen is the total non-value overhead on top of the Ethernet
// payload.
const ProtocolHeaderLen = AgentHeaderLen + TrailerLen

var (
	ErrMessageTooShort  = errors.New("wire: payload shorter than protocol header")
	ErrValueLenMismatch = errors.New("wire: declared value length exceeds payload")
	ErrUnknownKind      = errors.New("wire: unrecognized message kind")
	ErrValueTooLarge    = errors.New("wire: value length exceeds MTU budget")
)

// EncodedLen returns the number of bytes EncodeMessage will write for a
// message carrying valueLen bytes of value.
func EncodedLen(valueLen int) int {
	return ProtocolHeaderLen + valueLen
}

// EncodeMessage serializes m's header, trailer and value into dst, which
// must have capacity for EncodedLen(len(m.Value)). mtu is the caller's
// negotiated value-length budget (MTU minus ProtocolHeaderLen); it is
// enforced here so a caller cannot silently emit an over-size frame.
func EncodeMessage(dst []byte, m *message.Message, srcPort uint16, mtu int) (int, error) {
	if len(m.Value) > mtu {
		return 0, ErrValueTooLarge
	}
	dst[0] = byte(m.Kind)
	binary.BigEndian.PutUint32(dst[1:5], uint32(m.Unit))
	binary.BigEndian.PutUint32(dst[5:9], uint32(m.Period.Microseconds()))
	binary.BigEndian.PutUint64(dst[9:17], uint64(m.Captured))
	binary.BigEndian.PutUint16(dst[17:19], srcPort)
	binary.BigEndian.PutUint16(dst[19:21], uint16(len(m.Value)))
	n := copy(dst[AgentHeaderLen+TrailerLen:], m.Value)
	return AgentHeaderLen + TrailerLen + n, nil
}

// DecodeMessage parses the Agent header, trailer and value out of payload.
// origin is taken from the caller (the Ethernet source MAC is not known to
// this package). DecodeMessage validates value_len against the remaining
// payload length and rejects unrecognized kinds; both are the malformed-
// frame conditions callers need to count
// and drop rather than deliver to the bus.
func DecodeMessage(payload []byte) (kind message.Kind, u unit.Unit, periodUS uint32, capturedUS int64, srcPort uint16, value []byte, err error) {
	if len(payload) < ProtocolHeaderLen {
		return 0, 0, 0, 0, 0, nil, ErrMessageTooShort
	}
	k := message.Kind(payload[0])
	if k != message.Interest && k != message.Response {
		return 0, 0, 0, 0, 0, nil, ErrUnknownKind
	}
	u = unit.Unit(binary.BigEndian.Uint32(payload[1:5]))
	periodUS = binary.BigEndian.Uint32(payload[5:9])
	capturedUS = int64(binary.BigEndian.Uint64(payload[9:17]))
	srcPort = binary.BigEndian.Uint16(payload[17:19])
	valueLen := binary.BigEndian.Uint16(payload[19:21])
	rest := payload[ProtocolHeaderLen:]
	if int(valueLen) > len(rest) {
		return 0, 0, 0, 0, 0, nil, ErrValueLenMismatch
	}
	value = rest[:valueLen]
	return k, u, periodUS, capturedUS, srcPort, value, nil
}
