package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "phase and kind only",
			err:  &Error{Phase: PhaseRead, Kind: KindNotAttached},
			want: "[read] not_attached",
		},
		{
			name: "with address",
			err:  &Error{Phase: PhaseWrite, Kind: KindOutOfBounds, Address: 0x80000100, HasAddr: true},
			want: "[write] out_of_bounds at 0x80000100",
		},
		{
			name: "with type name",
			err:  &Error{Phase: PhaseEncode, Kind: KindTypeMismatch, TypeName: "uint32"},
			want: "[encode] type_mismatch: type uint32",
		},
		{
			name: "with detail",
			err:  &Error{Phase: PhaseScan, Kind: KindInvalidInput, Detail: "empty structure"},
			want: "[scan] invalid_input: empty structure",
		},
		{
			name: "type name and detail",
			err:  &Error{Phase: PhaseDecode, Kind: KindTypeMismatch, TypeName: "wide string", Detail: "odd buffer length"},
			want: "[decode] type_mismatch: type wide string - odd buffer length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorCauseChain(t *testing.T) {
	cause := fmt.Errorf("segment not found")
	err := Mapping(PhaseAttach, "map MEM1 view", cause)

	if !strings.Contains(err.Error(), "caused by: segment not found") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap() did not return the cause")
	}
}

func TestErrorIs(t *testing.T) {
	err := NotAttached(PhaseRead)

	if !stderrors.Is(err, &Error{Phase: PhaseRead, Kind: KindNotAttached}) {
		t.Error("Is() = false for matching phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseWrite, Kind: KindNotAttached}) {
		t.Error("Is() = true for different phase")
	}
	if stderrors.Is(err, &Error{Phase: PhaseRead, Kind: KindOutOfBounds}) {
		t.Error("Is() = true for different kind")
	}
}

func TestErrorAs(t *testing.T) {
	var wrapped error = fmt.Errorf("scan failed: %w", OutOfBounds(PhaseRead, 0xC0000000))

	var e *Error
	if !stderrors.As(wrapped, &e) {
		t.Fatal("As() failed to extract *Error")
	}
	if e.Kind != KindOutOfBounds || e.Address != 0xC0000000 {
		t.Errorf("As() extracted %+v", e)
	}
}

func TestBuilder(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := New(PhaseScan, KindShortIO).
		Address(0x80001000).
		TypeName("int16").
		Detail("wanted %d bytes", 2).
		Cause(cause).
		Build()

	if err.Phase != PhaseScan || err.Kind != KindShortIO {
		t.Errorf("Build() phase/kind = %s/%s", err.Phase, err.Kind)
	}
	if !err.HasAddr || err.Address != 0x80001000 {
		t.Errorf("Build() address = %#x (has=%v)", err.Address, err.HasAddr)
	}
	if err.TypeName != "int16" {
		t.Errorf("Build() type name = %q", err.TypeName)
	}
	if err.Detail != "wanted 2 bytes" {
		t.Errorf("Build() detail = %q", err.Detail)
	}
	if err.Cause != cause {
		t.Error("Build() lost the cause")
	}
}

func TestShortIO(t *testing.T) {
	err := ShortIO(PhaseWrite, 0x80000000, 2, 4)
	if !strings.Contains(err.Error(), "2 of 4 bytes") {
		t.Errorf("ShortIO detail missing: %q", err.Error())
	}
}
