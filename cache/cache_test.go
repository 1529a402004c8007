package cache

import (
	"testing"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

var originA = address.MAC{0x02, 0, 0, 0, 0x10, 0x01}
var originB = address.MAC{0x02, 0, 0, 0, 0x20, 0x02}

func TestAccept_NewOriginAlwaysAccepts(t *testing.T) {
	c := New(nil)
	if !c.Accept(originA, unit.Image, 1000, 500, 4) {
		t.Fatalf("expected first RESPONSE from a new origin to be accepted")
	}
	if c.Origins() != 1 {
		t.Fatalf("expected 1 tracked origin, got %d", c.Origins())
	}
}

func TestAccept_RateGatesSameOriginAndUnit(t *testing.T) {
	c := New(nil)
	const p = int64(100)

	if !c.Accept(originA, unit.Image, 1000, p, 4) {
		t.Fatalf("first RESPONSE should be accepted")
	}
	if c.Accept(originA, unit.Image, 1050, p, 4) {
		t.Fatalf("RESPONSE within the period window should be rejected")
	}
	if !c.Accept(originA, unit.Image, 1100, p, 4) {
		t.Fatalf("RESPONSE exactly at the period boundary should be accepted")
	}
	if !c.Accept(originA, unit.Image, 1250, p, 4) {
		t.Fatalf("RESPONSE well past the period boundary should be accepted")
	}
}

func TestAccept_PeriodZeroAcceptsUnconditionally(t *testing.T) {
	c := New(nil)
	for i := int64(0); i < 5; i++ {
		if !c.Accept(originA, unit.Image, i, 0, 4) {
			t.Fatalf("period=0 must accept every RESPONSE, rejected at t=%d", i)
		}
	}
}

func TestAccept_DistinctUnitsGetSeparateSlots(t *testing.T) {
	c := New(nil)
	const p = int64(100)

	if !c.Accept(originA, unit.Image, 1000, p, 4) {
		t.Fatalf("unit Image should be accepted")
	}
	if !c.Accept(originA, unit.Inertial, 1010, p, 8) {
		t.Fatalf("a second unit from the same origin should get its own slot and be accepted")
	}
	if c.Accept(originA, unit.Image, 1020, p, 4) {
		t.Fatalf("unit Image should still be rate-gated independently of Inertial")
	}
}

func TestAccept_DistinctOriginsAreIndependent(t *testing.T) {
	c := New(nil)
	const p = int64(100)

	if !c.Accept(originA, unit.Image, 0, p, 4) {
		t.Fatalf("originA should be accepted")
	}
	if !c.Accept(originB, unit.Image, 10, p, 4) {
		t.Fatalf("originB should be accepted independently of originA's rate gate")
	}
	if c.Origins() != 2 {
		t.Fatalf("expected 2 tracked origins, got %d", c.Origins())
	}
}

func TestAccept_NoFreeSlotAcceptsWithoutCaching(t *testing.T) {
	c := New(nil)
	const p = int64(1000)

	units := []unit.Unit{unit.Test, unit.Image, unit.PointCloud, unit.Inertial, unit.CSVRecord}
	for i, u := range units {
		if !c.Accept(originA, u, int64(i+1), p, 1) {
			t.Fatalf("unit %d should fill a free slot and be accepted", u)
		}
	}

	overflow := unit.Unit(999)
	if !c.Accept(originA, overflow, 6, p, 1) {
		t.Fatalf("overflow unit should still be accepted without caching (documented deficiency)")
	}
	// The cache has no slot for overflow, so a second RESPONSE for it
	// within the period window must also be accepted unconditionally
	// rather than being rate-gated.
	if !c.Accept(originA, overflow, 7, p, 1) {
		t.Fatalf("overflow unit should remain unrate-gated with no slot to track it")
	}
}
