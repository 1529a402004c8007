package wire

import (
	"testing"
	"time"

	"github.com/jcconnects/UFSC-INE5424-sub001/message"
)

func TestMTUForLinkMTU(t *testing.T) {
	tests := []struct {
		name    string
		linkMTU int
		want    int
	}{
		{name: "typical ethernet", linkMTU: 1500, want: 1486},
		{name: "below header", linkMTU: 10, want: 0},
		{name: "exact header", linkMTU: HeaderLen, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MTUForLinkMTU(tt.linkMTU); got != tt.want {
				t.Errorf("MTUForLinkMTU(%d) = %d, want %d", tt.linkMTU, got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	dst := [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	src := [6]byte{1, 2, 3, 4, 5, 6}
	payload := []byte("hello")
	buf := make([]byte, HeaderLen+len(payload))

	n := Encode(buf, dst, src, payload)
	if n != len(buf) {
		t.Fatalf("Encode wrote %d bytes, want %d", n, len(buf))
	}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if f.Dst != dst || f.Src != src {
		t.Errorf("Decode addressing mismatch: got dst=%v src=%v", f.Dst, f.Src)
	}
	if f.EtherType != EtherType {
		t.Errorf("Decode EtherType = %#x, want %#x", f.EtherType, EtherType)
	}
	if string(f.Payload) != "hello" {
		t.Errorf("Decode Payload = %q, want %q", f.Payload, "hello")
	}
}

func TestDecodeFrameTooShort(t *testing.T) {
	if _, err := Decode(make([]byte, 4)); err != ErrFrameTooShort {
		t.Fatalf("Decode() error = %v, want ErrFrameTooShort", err)
	}
}

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	m := &message.Message{
		Kind:     message.Response,
		Unit:     0x55,
		Period:   0,
		Value:    []byte{0x01, 0x02, 0x03, 0x04},
		Captured: 123456789,
	}
	buf := make([]byte, EncodedLen(len(m.Value)))
	n, err := EncodeMessage(buf, m, 42, 1486)
	if err != nil {
		t.Fatalf("EncodeMessage returned error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("EncodeMessage wrote %d bytes, want %d", n, len(buf))
	}

	kind, u, periodUS, capturedUS, srcPort, value, err := DecodeMessage(buf)
	if err != nil {
		t.Fatalf("DecodeMessage returned error: %v", err)
	}
	if kind != message.Response {
		t.Errorf("kind = %v, want RESPONSE", kind)
	}
	if u != 0x55 {
		t.Errorf("unit = %#x, want 0x55", u)
	}
	if periodUS != 0 {
		t.Errorf("periodUS = %d, want 0", periodUS)
	}
	if capturedUS != 123456789 {
		t.Errorf("capturedUS = %d, want 123456789", capturedUS)
	}
	if srcPort != 42 {
		t.Errorf("srcPort = %d, want 42", srcPort)
	}
	if string(value) != string(m.Value) {
		t.Errorf("value = %v, want %v", value, m.Value)
	}
}

func TestEncodeMessageWithPeriod(t *testing.T) {
	m := &message.Message{Kind: message.Interest, Unit: 1, Period: 100 * time.Millisecond}
	buf := make([]byte, EncodedLen(0))
	if _, err := EncodeMessage(buf, m, 0, 1486); err != nil {
		t.Fatalf("EncodeMessage returned error: %v", err)
	}
	_, _, periodUS, _, _, _, err := DecodeMessage(buf)
	if err != nil {
		t.Fatalf("DecodeMessage returned error: %v", err)
	}
	if periodUS != 100000 {
		t.Errorf("periodUS = %d, want 100000", periodUS)
	}
}

func TestEncodeMessageValueTooLarge(t *testing.T) {
	m := &message.Message{Value: make([]byte, 10)}
	buf := make([]byte, EncodedLen(10))
	if _, err := EncodeMessage(buf, m, 0, 5); err != ErrValueTooLarge {
		t.Fatalf("EncodeMessage() error = %v, want ErrValueTooLarge", err)
	}
}

func TestDecodeMessageTooShort(t *testing.T) {
	if _, _, _, _, _, _, err := DecodeMessage(make([]byte, 5)); err != ErrMessageTooShort {
		t.Fatalf("DecodeMessage() error = %v, want ErrMessageTooShort", err)
	}
}

func TestDecodeMessageUnknownKind(t *testing.T) {
	buf := make([]byte, ProtocolHeaderLen)
	buf[0] = 0xEE
	if _, _, _, _, _, _, err := DecodeMessage(buf); err != ErrUnknownKind {
		t.Fatalf("DecodeMessage() error = %v, want ErrUnknownKind", err)
	}
}

func TestDecodeMessageValueLenMismatch(t *testing.T) {
	buf := make([]byte, ProtocolHeaderLen)
	buf[0] = byte(message.Response)
	// declare a value length longer than what actually follows (nothing).
	buf[19] = 0xFF
	buf[20] = 0xFF
	if _, _, _, _, _, _, err := DecodeMessage(buf); err != ErrValueLenMismatch {
		t.Fatalf("DecodeMessage() error = %v, want ErrValueLenMismatch", err)
	}
}
