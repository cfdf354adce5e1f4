package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAttach Phase = "attach" // target attachment
	PhaseDetach Phase = "detach" // target teardown
	PhaseQuery  Phase = "query"  // region queries
	PhaseRead   Phase = "read"   // raw reads from the target
	PhaseWrite  Phase = "write"  // raw writes to the target
	PhaseScan   Phase = "scan"   // scan passes
	PhaseEncode Phase = "encode" // variant to wire bytes
	PhaseDecode Phase = "decode" // wire bytes to variant
	PhaseScript Phase = "script" // scan script execution
	PhaseSHM    Phase = "shm"    // shared-memory segments
)

// Kind categorizes the error
type Kind string

const (
	KindNotAttached  Kind = "not_attached"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindTypeMismatch Kind = "type_mismatch"
	KindUnsupported  Kind = "unsupported"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindMapping      Kind = "mapping"
	KindNullVariant  Kind = "null_variant"
	KindUnprepared   Kind = "unprepared"
	KindShortIO      Kind = "short_io"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Address  uint64
	HasAddr  bool
	TypeName string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasAddr {
		fmt.Fprintf(&b, " at %#x", e.Address)
	}

	if e.TypeName != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeName)
	}

	if e.Detail != "" {
		if e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Address sets the target address the error refers to
func (b *Builder) Address(addr uint64) *Builder {
	b.err.Address = addr
	b.err.HasAddr = true
	return b
}

// TypeName sets the variant type name involved
func (b *Builder) TypeName(name string) *Builder {
	b.err.TypeName = name
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

// Convenience constructors for common error patterns

// NotAttached creates an error for operations on a detached target
func NotAttached(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotAttached,
		Detail: "target is not attached",
	}
}

// OutOfBounds creates an error for an address outside any region
func OutOfBounds(phase Phase, addr uint64) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfBounds,
		Address: addr,
		HasAddr: true,
		Detail:  "address outside all mapped regions",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, typeName, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		TypeName: typeName,
		Detail:   detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
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

// NotFound creates a not found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Mapping creates an error for a failed shared-memory mapping
func Mapping(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMapping,
		Detail: detail,
		Cause:  cause,
	}
}

// NullVariant creates an error for operations on a null variant
func NullVariant(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullVariant,
		Detail: "variant is null",
	}
}

// Unprepared creates an error for comparisons before PrepareForSearch
func Unprepared(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnprepared,
		Detail: "variant has no search context; call PrepareForSearch first",
	}
}

// ShortIO creates an error for truncated reads or writes
func ShortIO(phase Phase, addr uint64, got, want int) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindShortIO,
		Address: addr,
		HasAddr: true,
		Detail:  fmt.Sprintf("%d of %d bytes transferred", got, want),
	}
}
