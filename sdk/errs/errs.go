// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package errs defines the error kinds shared by the transfer packages.
package errs

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	// Config: malformed inputs, never retried.
	Config
	// Auth: credential request failed or token rejected.
	Auth
	// Transient: timeouts, 5xx, retriable multipart failures.
	Transient
	// Integrity: checksum or size mismatch on download.
	Integrity
	// IO: local filesystem errors.
	IO
	// Cancelled: cooperative cancellation.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Auth:
		return "AuthError"
	case Transient:
		return "TransientError"
	case Integrity:
		return "IntegrityError"
	case IO:
		return "IOError"
	case Cancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error from a format string.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err stays nil; an already classified err
// keeps its kind unless it was Unknown.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != Unknown {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retriable reports whether the engine may retry after err.
func Retriable(err error) bool {
	return KindOf(err) == Transient
}
