// Package errors provides structured error types for the scan engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type includes rich context: the target
// address, the variant type name, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindOutOfBounds).
//		Address(0x80000100).
//		Detail("read past end of MEM1").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotAttached(errors.PhaseRead)
//	err := errors.OutOfBounds(errors.PhaseWrite, addr)
//
// All errors implement the standard error interface and support
// errors.Is/As.
package errors
