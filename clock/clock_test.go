package clock

import (
	"testing"
	"time"
)

func TestMonotonic_NowMicros(t *testing.T) {
	m := NewMonotonic()
	a := m.NowMicros()
	time.Sleep(2 * time.Millisecond)
	b := m.NowMicros()
	if b <= a {
		t.Fatalf("expected NowMicros to advance: a=%d b=%d", a, b)
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "unset", env: ""},
		{name: "monotonic", env: "monotonic"},
		{name: "ptp fallback", env: "ptp:/dev/ptp0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SMARTDATA_CLOCK_SOURCE", tt.env)
			src := FromEnv()
			if _, ok := src.(*Monotonic); !ok {
				t.Fatalf("FromEnv() returned %T, want *Monotonic", src)
			}
		})
	}
}
