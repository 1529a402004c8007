//go:build linux

package rawsocket

import "testing"

func TestHtons(t *testing.T) {
	tests := []struct {
		name string
		in   uint16
		want uint16
	}{
		{name: "ethertype", in: 0x88B5, want: 0xB588},
		{name: "zero", in: 0, want: 0},
		{name: "max", in: 0xFFFF, want: 0xFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htons(tt.in); got != tt.want {
				t.Errorf("htons(%#x) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_UnknownInterface(t *testing.T) {
	_, err := New("does-not-exist-9999")
	if err == nil {
		t.Fatalf("expected error for unknown interface")
	}
}
