package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(-4, 0, 31); got != 0 {
		t.Errorf("Clamp(-4,0,31) = %d", got)
	}
	if got := Clamp(40, 0, 31); got != 31 {
		t.Errorf("Clamp(40,0,31) = %d", got)
	}
	if got := Clamp(12, 0, 31); got != 12 {
		t.Errorf("Clamp(12,0,31) = %d", got)
	}
	// Swapped bounds still clamp correctly.
	if got := Clamp(99, 31, 0); got != 31 {
		t.Errorf("Clamp(99,31,0) = %d", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(uint16(100), 20, 10240) {
		t.Error("Between(100,20,10240) = false")
	}
	if Between(uint16(5), 20, 10240) {
		t.Error("Between(5,20,10240) = true")
	}
}

func TestMinMax(t *testing.T) {
	if Min(3, 7) != 3 || Max(3, 7) != 7 {
		t.Error("Min/Max broken")
	}
}
