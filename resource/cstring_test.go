package resource

import (
	"testing"

	"github.com/wippyai/ridgen/errors"
)

func TestCStringRoundTrip(t *testing.T) {
	l := NewLedger()
	tests := []string{
		"",
		"buy milk",
		"grüße",
		"日本語のテキスト",
		"emoji 🦀 and 🎯",
		"tab\tnew\nline",
		"caret ^ separator",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			h, err := l.LeakCString(s)
			if err != nil {
				t.Fatal(err)
			}
			got, err := l.ReclaimCString(h)
			if err != nil {
				t.Fatal(err)
			}
			if got != s {
				t.Errorf("got %q, want %q", got, s)
			}
		})
	}
	if l.Len() != 0 {
		t.Errorf("%d strings leaked", l.Len())
	}
}

func TestCStringInteriorNul(t *testing.T) {
	l := NewLedger()
	_, err := l.LeakCString("a\x00b")
	e, ok := errors.As(err)
	if !ok || e.Kind != errors.KindInvalidInput {
		t.Fatalf("err = %v", err)
	}
	if l.Len() != 0 {
		t.Error("nothing should be leaked")
	}
}

func TestCBytes(t *testing.T) {
	l := NewLedger()

	h, _ := l.LeakCBytes([]byte("done\x00garbage"))
	s, err := l.ReclaimCString(h)
	if err != nil || s != "done" {
		t.Fatalf("got %q, %v", s, err)
	}

	h, _ = l.LeakCBytes([]byte{0xff, 0xfe, 'x'})
	_, err = l.ReclaimCString(h)
	e, ok := errors.As(err)
	if !ok || e.Kind != errors.KindInvalidUTF8 {
		t.Fatalf("err = %v", err)
	}
	if l.Len() != 0 {
		t.Error("invalid buffer must still be freed")
	}
}

func TestFreeCString(t *testing.T) {
	l := NewLedger()
	h, _ := l.LeakCString("x")
	if err := l.FreeCString(h); err != nil {
		t.Fatal(err)
	}
	if err := l.FreeCString(h); err == nil {
		t.Error("double free should fail")
	}
}
