package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse     Phase = "parse"     // tokenizing and item parsing
	PhaseAttribute Phase = "attribute" // rid attribute parsing
	PhaseResolve   Phase = "resolve"   // type resolution
	PhaseRender    Phase = "render"    // native/host code emission
	PhaseRuntime   Phase = "runtime"   // store and foreign resource runtime
	PhaseHost      Phase = "host"      // host-side reply channel
	PhaseConfig    Phase = "config"    // Cargo.toml and option loading
)

// Kind categorizes the error
type Kind string

const (
	KindAttributeShape      Kind = "attribute_shape"
	KindTypeUnknown         Kind = "type_unknown"
	KindUnsupportedShape    Kind = "unsupported_shape"
	KindNamingContract      Kind = "naming_contract"
	KindReplyShape          Kind = "reply_shape"
	KindLockMisuse          Kind = "lock_misuse"
	KindInvalidDiscriminant Kind = "invalid_discriminant"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindHostTimeout         Kind = "host_timeout"
	KindInvalidData         Kind = "invalid_data"
	KindNotFound            Kind = "not_found"
	KindOverflow            Kind = "overflow"
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidHandle       Kind = "invalid_handle"
)

// Span locates the token a diagnostic points at.
type Span struct {
	File  string
	Token string
	Line  int
	Col   int
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.Line == 0 && s.Col == 0 && s.Token == ""
}

func (s Span) String() string {
	var b strings.Builder
	if s.File != "" {
		b.WriteString(s.File)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d", s.Line, s.Col)
	return b.String()
}

// Error is the structured error type used throughout ridgen
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Item   string
	Detail string
	Span   Span
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Span.Line > 0 {
		b.WriteString(e.Span.String())
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Item != "" {
		b.WriteString(" in ")
		b.WriteString(e.Item)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Span.Token != "" {
		fmt.Fprintf(&b, " near %q", e.Span.Token)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the offending token span
func (b *Builder) At(span Span) *Builder {
	b.err.Span = span
	return b
}

// Item names the item whose emission is aborted
func (b *Builder) Item(name string) *Builder {
	b.err.Item = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the diagnostic taxonomy

// AttributeShape reports a malformed or misplaced attribute
func AttributeShape(span Span, detail string, args ...any) *Error {
	return New(PhaseAttribute, KindAttributeShape).At(span).Detail(detail, args...).Build()
}

// TypeUnknown reports a custom type referenced without a category hint
func TypeUnknown(span Span, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindTypeUnknown,
		Span:   span,
		Value:  name,
		Detail: fmt.Sprintf("type %q has no category; announce it with #[rid::structs(%s)] or #[rid::enums(%s)]", name, name, name),
	}
}

// UnsupportedShape reports a construct the generator cannot bridge
func UnsupportedShape(span Span, detail string, args ...any) *Error {
	return New(PhaseResolve, KindUnsupportedShape).At(span).Detail(detail, args...).Build()
}

// NamingContract reports a violated naming rule
func NamingContract(span Span, detail string, args ...any) *Error {
	return New(PhaseParse, KindNamingContract).At(span).Detail(detail, args...).Build()
}

// ReplyShape reports a reply variant with an unsupported field layout
func ReplyShape(span Span, variant string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindReplyShape,
		Span:   span,
		Value:  variant,
		Detail: fmt.Sprintf("reply variant %q must have no fields, (u64) or (u64, String)", variant),
	}
}

// LockMisuse reports a store lock/unlock called in the wrong state
func LockMisuse(detail string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindLockMisuse,
		Detail: detail,
	}
}

// InvalidDiscriminant creates an invalid discriminant error for c-style enums
func InvalidDiscriminant(enum string, disc int32, variants int) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInvalidDiscriminant,
		Path:   []string{enum},
		Detail: fmt.Sprintf("invalid discriminant %d for enum %s (valid range 0..%d)", disc, enum, variants),
		Value:  disc,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// HostTimeout reports a reply that did not arrive in time
func HostTimeout(reqID uint64, callSite string, after fmt.Stringer) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindHostTimeout,
		Value:  reqID,
		Detail: fmt.Sprintf("no reply for request %d within %s (sent from %s)", reqID, after, callSite),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(span Span, what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Span:   span,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Diagnostics collects the per-item errors of one translation unit.
// Each entry aborted exactly one item.
type Diagnostics []*Error

func (d Diagnostics) Error() string {
	if len(d) == 0 {
		return "no diagnostics"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s) skipped:", len(d))
	for _, e := range d {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Of returns the diagnostics matching kind.
func (d Diagnostics) Of(kind Kind) Diagnostics {
	var out Diagnostics
	for _, e := range d {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ForItem returns the diagnostic that aborted item, if any.
func (d Diagnostics) ForItem(item string) *Error {
	for _, e := range d {
		if e.Item == item {
			return e
		}
	}
	return nil
}

// Err returns d as an error, or nil when empty.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	return d
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
