// Package errors provides the structured error type returned across
// ModuleHost's public API.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a KernelError into one of the behavioral categories a
// caller needs to branch on.
type Kind string

const (
	// KindConfiguration marks a malformed or out-of-bounds configuration
	// value discovered at load time or during Kernel.Register/Initialize.
	KindConfiguration Kind = "CONFIGURATION"
	// KindModuleLogicFailure marks a module's Tick returning a non-nil
	// error; the kernel counts it against that module's breaker.
	KindModuleLogicFailure Kind = "MODULE_LOGIC_FAILURE"
	// KindModuleTimeout marks a module task that exceeded its
	// ExecutionPolicy.MaxRuntime; the result is discarded and the task
	// becomes a zombie.
	KindModuleTimeout Kind = "MODULE_TIMEOUT"
	// KindBreakerOpen marks a dispatch skipped because the module's
	// circuit breaker is Open or HalfOpen-exhausted.
	KindBreakerOpen Kind = "BREAKER_OPEN"
	// KindInternalInvariant marks a condition the kernel's own bookkeeping
	// should never produce (e.g. a chunk write version going backwards).
	// Seeing one means a bug in the kernel itself, not a module.
	KindInternalInvariant Kind = "INTERNAL_INVARIANT_VIOLATION"
)

// KernelError is the structured error type returned across ModuleHost's
// public API. Module carries the registered module name when the error
// originates from a specific module's dispatch, and is empty for
// host-level errors such as KindConfiguration.
type KernelError struct {
	Kind    Kind
	Module  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	prefix := string(e.Kind)
	if e.Module != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Module)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// New creates a KernelError with no module name and no wrapped cause.
func New(kind Kind, message string) *KernelError {
	return &KernelError{Kind: kind, Message: message}
}

// Wrap creates a KernelError carrying an underlying cause.
func Wrap(kind Kind, message string, err error) *KernelError {
	return &KernelError{Kind: kind, Message: message, Err: err}
}

// ForModule returns a copy of e with Module set, for kernel code that
// constructs the error before it knows which module's dispatch it belongs
// to.
func (e *KernelError) ForModule(name string) *KernelError {
	clone := *e
	clone.Module = name
	return &clone
}

// Configuration reports a malformed configuration value.
func Configuration(message string) *KernelError {
	return New(KindConfiguration, message)
}

// ModuleLogicFailure wraps an error a module's Tick returned.
func ModuleLogicFailure(module string, err error) *KernelError {
	return &KernelError{Kind: KindModuleLogicFailure, Module: module, Message: "module tick failed", Err: err}
}

// ModuleTimeout reports a module task that exceeded its runtime budget.
func ModuleTimeout(module string) *KernelError {
	return &KernelError{Kind: KindModuleTimeout, Module: module, Message: "module exceeded its runtime budget"}
}

// BreakerOpen reports a dispatch skipped because the module's breaker is
// not Closed.
func BreakerOpen(module string) *KernelError {
	return &KernelError{Kind: KindBreakerOpen, Module: module, Message: "circuit breaker is open"}
}

// InternalInvariant reports a condition the kernel's own bookkeeping
// should never produce.
func InternalInvariant(message string) *KernelError {
	return New(KindInternalInvariant, message)
}

// Is reports whether err is a KernelError of the given kind.
func Is(err error, kind Kind) bool {
	var ke *KernelError
	if !errors.As(err, &ke) {
		return false
	}
	return ke.Kind == kind
}

// As extracts a *KernelError from an error chain.
func As(err error) *KernelError {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke
	}
	return nil
}
