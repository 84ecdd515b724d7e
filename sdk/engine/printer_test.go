// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, 2_000_000_000)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	p.Emit(Event{Kind: EventStarted, File: "reads/r1.fastq.gz", Time: t0})
	p.Emit(Event{Kind: EventProgress, File: "reads/r1.fastq.gz", Bytes: 500_000_000, Time: t0.Add(10 * time.Second)})
	p.Emit(Event{Kind: EventRetry, File: "reads/r1.fastq.gz", Delay: 72 * time.Second, AttemptsLeft: 9, Err: errors.New("connection reset"), Time: t0.Add(11 * time.Second)})
	p.Emit(Event{Kind: EventCompleted, File: "reads/r1.fastq.gz", Bytes: 1_000_000_000, Time: t0.Add(20 * time.Second)})
	p.Done()

	got := out.String()
	for _, want := range []string{
		"500 MB / 2.0 GB",
		"50 MB/s",
		"reads/r1.fastq.gz",
		"Retrying reads/r1.fastq.gz in 1m12s (9 attempts remaining)",
		"50.00%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output misses %q:\n%s", want, got)
		}
	}
}

func TestPrinterUnknownTotal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, 0)
	t0 := time.Now()
	p.Emit(Event{Kind: EventProgress, File: "a", Bytes: 1500, Time: t0})
	p.Emit(Event{Kind: EventFailed, File: "b", Err: errors.New("AccessDenied"), Time: t0})

	got := out.String()
	if !strings.Contains(got, "1.5 kB") || !strings.Contains(got, "Failed b: AccessDenied") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}
