package config

import (
	"testing"
	"time"

	"doorman/internal/platform/testkit"
)

func TestPrefixComposes(t *testing.T) {
	t.Setenv("DOORMAN_TRUST_THRESHOLD", "3")

	c := New().Prefix("DOORMAN_").Prefix("TRUST_")
	if got := c.MustInt("THRESHOLD"); got != 3 {
		t.Fatalf("MustInt = %d, want 3", got)
	}
}

func TestMustStringPanicsOnMissing(t *testing.T) {
	testkit.MustPanic(t, func() {
		New().Prefix("DOORMAN_TEST_NOPE_").MustString("MISSING")
	})
}

func TestMayDefaults(t *testing.T) {
	c := New().Prefix("DOORMAN_TEST_DEF_")
	if c.MayInt("N", 7) != 7 {
		t.Fatalf("MayInt default")
	}
	if c.MayBool("B", true) != true {
		t.Fatalf("MayBool default")
	}
	if c.MayFloat64("F", 0.7) != 0.7 {
		t.Fatalf("MayFloat64 default")
	}
	if c.MayDuration("D", 45*time.Second) != 45*time.Second {
		t.Fatalf("MayDuration default")
	}
}

func TestMayValuesParse(t *testing.T) {
	t.Setenv("DOORMAN_CAPTCHA_TIMEOUT", "45s")
	t.Setenv("DOORMAN_MIMICRY_THRESHOLD", "0.7")
	t.Setenv("DOORMAN_GLOBAL_APPROVAL", "false")

	c := New().Prefix("DOORMAN_")
	if c.MayDuration("CAPTCHA_TIMEOUT", time.Minute) != 45*time.Second {
		t.Fatalf("duration parse")
	}
	if c.MayFloat64("MIMICRY_THRESHOLD", 0) != 0.7 {
		t.Fatalf("float parse")
	}
	if c.MayBool("GLOBAL_APPROVAL", true) != false {
		t.Fatalf("bool parse")
	}
}

func TestMayInvalidFallsBack(t *testing.T) {
	t.Setenv("DOORMAN_BAD_INT", "three")
	if New().Prefix("DOORMAN_").MayInt("BAD_INT", 3) != 3 {
		t.Fatalf("invalid int should fall back to default")
	}
}

func TestMayIDSet(t *testing.T) {
	t.Setenv("DOORMAN_NO_CAPTCHA_CHATS", "-100123, 456,junk, 789")

	set := New().Prefix("DOORMAN_").MayIDSet("NO_CAPTCHA_CHATS")
	if len(set) != 3 {
		t.Fatalf("want 3 ids, got %d", len(set))
	}
	for _, id := range []int64{-100123, 456, 789} {
		if _, ok := set[id]; !ok {
			t.Fatalf("missing id %d", id)
		}
	}
}

func TestMustPort(t *testing.T) {
	t.Setenv("DOORMAN_ADMIN_PORT", "4000")
	if got := New().Prefix("DOORMAN_").MustPort("ADMIN_PORT"); got != ":4000" {
		t.Fatalf("MustPort = %q", got)
	}
	t.Setenv("DOORMAN_ADMIN_PORT", "99999")
	testkit.MustPanic(t, func() {
		New().Prefix("DOORMAN_").MustPort("ADMIN_PORT")
	})
}
