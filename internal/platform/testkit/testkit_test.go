package testkit

import "testing"

func TestMustPanic(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
}

func TestMustNotPanic(t *testing.T) {
	MustNotPanic(t, func() {})
}

func TestSwapRestores(t *testing.T) {
	seam := func() int { return 1 }
	target := &seam

	t.Run("inner", func(t *testing.T) {
		Swap(t, target, func() int { return 2 })
		if (*target)() != 2 {
			t.Fatalf("swap did not take effect")
		}
	})

	if (*target)() != 1 {
		t.Fatalf("swap was not restored after subtest")
	}
}

func TestMustContain(t *testing.T) {
	MustContain(t, "decision: ban, reason: blacklist", "ban")
}
