// Package message defines the typed payload exchanged between Agents:
// an INTEREST request or a RESPONSE carrying a producer's value.
package message

import (
	"time"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// Kind distinguishes an INTEREST message from a RESPONSE.
type Kind uint8

const (
	Interest Kind = 0
	Response Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Interest:
		return "INTEREST"
	case Response:
		return "RESPONSE"
	default:
		return "INVALID"
	}
}

// Direction returns the bus Direction a message of this kind is notified
// under.
func (k Kind) Direction() unit.Direction {
	if k == Interest {
		return unit.DirectionInterest
	}
	return unit.DirectionResponse
}

// Message is the unit of exchange between Agents: either an INTEREST
// ("I want unit U at period P") or a RESPONSE (a captured value for U).
type Message struct {
	Kind     Kind
	Origin   address.Address
	Unit     unit.Unit
	Period   time.Duration // 0 for RESPONSE
	Value    []byte
	Captured int64 // synchronized microseconds, set at producer capture time
	External bool  // true when Origin's host differs from the local host
}

// Condition returns the (Unit, Direction) the bus dispatches this message
// under.
func (m *Message) Condition() unit.Condition {
	return unit.Condition{Unit: m.Unit, Direction: m.Kind.Direction()}
}

// Clone returns a deep copy of m, used when handing a message to a second
// observer so that one observer's use of Value cannot race another's.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Value != nil {
		cp.Value = make([]byte, len(m.Value))
		copy(cp.Value, m.Value)
	}
	return &cp
}
