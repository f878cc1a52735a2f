package config

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "value")
	if got := String("CFG_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := String("CFG_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("CFG_TEST_REQ", "present")
	if v, err := RequiredString("CFG_TEST_REQ"); err != nil || v != "present" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	if _, err := RequiredString("CFG_TEST_REQ_MISSING"); err == nil {
		t.Fatal("missing required var should error")
	}
}

func TestInt(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	if got := Int("CFG_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("CFG_TEST_INT_BAD", "nope")
	if got := Int("CFG_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("invalid value should fall back, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("CFG_TEST_DUR", "250ms")
	if got := Duration("CFG_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("got %v", got)
	}
	if got := Duration("CFG_TEST_DUR_MISSING", time.Second); got != time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("CFG_TEST_PORT", "8083")
	if v, err := Port("CFG_TEST_PORT", "8080"); err != nil || v != "8083" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	t.Setenv("CFG_TEST_PORT_BAD", "99999")
	if _, err := Port("CFG_TEST_PORT_BAD", "8080"); err == nil {
		t.Fatal("out-of-range port should error")
	}
}
