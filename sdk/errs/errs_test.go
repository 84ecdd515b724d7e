// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"plain", base, Unknown},
		{"config", New(Config, "parse", "bad uri %q", "x"), Config},
		{"wrapped transient", fmt.Errorf("upload: %w", Wrap(Transient, "put", base)), Transient},
		{"context canceled", fmt.Errorf("get: %w", context.Canceled), Cancelled},
		{"auth keeps kind", Wrap(IO, "rewrap", Wrap(Auth, "fetch", base)), Auth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(Transient, "put", base)
	if !errors.Is(err, base) {
		t.Fatal("wrapped error lost its cause")
	}
	if !Retriable(err) {
		t.Fatal("transient error should be retriable")
	}
	if Retriable(Wrap(Integrity, "get", base)) {
		t.Fatal("integrity error should not be retriable")
	}
	if Wrap(Config, "x", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}

func TestErrorString(t *testing.T) {
	err := New(Integrity, "get data/x", "sha256 mismatch")
	want := "IntegrityError: get data/x: sha256 mismatch"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
