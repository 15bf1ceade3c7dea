package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseAttribute,
				Kind:   KindAttributeShape,
				Item:   "Store",
				Span:   Span{File: "lib.rs", Line: 3, Col: 9, Token: "types"},
				Detail: "expected braces",
			},
			contains: []string{"lib.rs:3:9", "[attribute]", "attribute_shape", "in Store", `near "types"`, "expected braces"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRuntime,
				Kind:  KindLockMisuse,
			},
			contains: []string{"[runtime]", "lock_misuse"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidData,
				Detail: "read Cargo.toml",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[config]", "invalid_data", "read Cargo.toml", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoSpanPrefix(t *testing.T) {
	err := &Error{Phase: PhaseHost, Kind: KindHostTimeout}
	if strings.HasPrefix(err.Error(), "0:0") {
		t.Errorf("zero span must not be printed: %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseParse,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := TypeUnknown(Span{Line: 1, Col: 1, Token: "Todo"}, "Todo")

	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindTypeUnknown}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindUnsupportedShape}) {
		t.Error("unexpected match on different kind")
	}
	if errors.Is(err, &Error{Phase: PhaseRender, Kind: KindTypeUnknown}) {
		t.Error("unexpected match on different phase")
	}
}

func TestBuilder(t *testing.T) {
	span := Span{Line: 4, Col: 2, Token: "message"}
	err := New(PhaseAttribute, KindAttributeShape).
		At(span).
		Item("Todo").
		Path("Todo", "message").
		Value(42).
		Detail("message is not allowed on %s", "structs").
		Build()

	if err.Span != span {
		t.Errorf("span = %+v, want %+v", err.Span, span)
	}
	if err.Item != "Todo" {
		t.Errorf("item = %q", err.Item)
	}
	if err.Detail != "message is not allowed on structs" {
		t.Errorf("detail = %q", err.Detail)
	}
	if err.Value != 42 {
		t.Errorf("value = %v", err.Value)
	}
	if len(err.Path) != 2 {
		t.Errorf("path = %v", err.Path)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
		want  string
	}{
		{"reply shape", ReplyShape(Span{}, "Added"), PhaseParse, KindReplyShape, `"Added"`},
		{"naming", NamingContract(Span{}, "store must be named Store"), PhaseParse, KindNamingContract, "Store"},
		{"unsupported", UnsupportedShape(Span{}, "nested %s", "Vec"), PhaseResolve, KindUnsupportedShape, "nested Vec"},
		{"lock", LockMisuse("already locked"), PhaseRuntime, KindLockMisuse, "already locked"},
		{"discriminant", InvalidDiscriminant("Filter", 7, 2), PhaseRuntime, KindInvalidDiscriminant, "Filter"},
		{"utf8", InvalidUTF8(PhaseRuntime, nil, []byte{0xff}), PhaseRuntime, KindInvalidUTF8, "ff"},
		{"timeout", HostTimeout(3, "main.go:10", time.Second), PhaseHost, KindHostTimeout, "main.go:10"},
		{"overflow", Overflow(PhaseRender, nil, "u64", "Dart int"), PhaseRender, KindOverflow, "Dart int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got [%s] %s, want [%s] %s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("%q does not contain %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	if d.Err() != nil {
		t.Fatal("empty diagnostics must not be an error")
	}

	a := New(PhaseResolve, KindTypeUnknown).Item("Store").Build()
	b := New(PhaseParse, KindReplyShape).Item("Reply").Build()
	d = append(d, a, b)

	if d.Err() == nil {
		t.Fatal("expected error")
	}
	if got := d.Of(KindReplyShape); len(got) != 1 || got[0] != b {
		t.Errorf("Of(reply_shape) = %v", got)
	}
	if d.ForItem("Store") != a {
		t.Error("ForItem(Store) mismatch")
	}
	if d.ForItem("Missing") != nil {
		t.Error("ForItem(Missing) should be nil")
	}
	if !strings.Contains(d.Error(), "2 item(s) skipped") {
		t.Errorf("unexpected summary %q", d.Error())
	}
}

func TestAs(t *testing.T) {
	inner := LockMisuse("unlock while unlocked")
	wrapped := fmt.Errorf("store: %w", inner)

	got, ok := As(wrapped)
	if !ok || got != inner {
		t.Fatalf("As = %v, %v", got, ok)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Error("plain error must not match")
	}
}
