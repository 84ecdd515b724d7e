// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the terminal state of one file.
type Result struct {
	Path     string
	Key      string
	Local    string
	Bytes    int64
	Attempts int
	Outcome  Outcome
	Err      error
}

// Report lists the files of a batch by outcome, each list in input order.
type Report struct {
	Direction Direction
	Succeeded []Result
	Failed    []Result
	Cancelled []Result
}

func newReport(dir Direction, results []Result) *Report {
	r := &Report{Direction: dir}
	for _, res := range results {
		switch res.Outcome {
		case OutcomeSucceeded:
			r.Succeeded = append(r.Succeeded, res)
		case OutcomeFailed:
			r.Failed = append(r.Failed, res)
		default:
			r.Cancelled = append(r.Cancelled, res)
		}
	}
	return r
}

func (r *Report) Len() int {
	return len(r.Succeeded) + len(r.Failed) + len(r.Cancelled)
}

func (r *Report) Bytes() int64 {
	var n int64
	for _, res := range r.Succeeded {
		n += res.Bytes
	}
	return n
}

// Err is nil unless the batch was cancelled, or nothing succeeded and at
// least one file failed. Partial failures are left to the caller.
func (r *Report) Err() error {
	switch {
	case len(r.Cancelled) > 0:
		return errs.New(errs.Cancelled, string(r.Direction),
			"batch cancelled: %d succeeded, %d failed, %d cancelled", len(r.Succeeded), len(r.Failed), len(r.Cancelled))
	case len(r.Succeeded) == 0 && len(r.Failed) > 0:
		return &BatchError{Report: r}
	}
	return nil
}

// BatchError signals that every attempted file failed.
type BatchError struct {
	Report *Report
}

func (e *BatchError) Error() string {
	first := e.Report.Failed[0]
	if len(e.Report.Failed) == 1 {
		return fmt.Sprintf("%s failed: %s: %v", e.Report.Direction, first.Path, first.Err)
	}
	return fmt.Sprintf("%s failed for all %d files, first: %s: %v",
		e.Report.Direction, len(e.Report.Failed), first.Path, first.Err)
}

// Unwrap exposes the per-file errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Report.Failed))
	for _, res := range e.Report.Failed {
		out = append(out, res.Err)
	}
	return out
}
