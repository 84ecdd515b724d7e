// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

var spinner = []rune{'|', '/', '-', '\\'}

// Printer is a Sink that keeps a single progress line for the whole batch
// on w, plus one line per retry or failure.
type Printer struct {
	mu         sync.Mutex
	w          io.Writer
	totalBytes int64
	perFile    map[string]int64
	doneBytes  int64
	current    string
	start      time.Time
	lastTick   time.Time
	spinIdx    int
	// Throttle between two redraws of the progress line.
	Throttle time.Duration
}

// NewPrinter returns a Printer; totalBytes may be zero when unknown.
func NewPrinter(w io.Writer, totalBytes int64) *Printer {
	return &Printer{
		w:          w,
		totalBytes: totalBytes,
		perFile:    map[string]int64{},
		Throttle:   100 * time.Millisecond,
	}
}

func (p *Printer) Emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() {
		p.start = ev.Time
	}
	switch ev.Kind {
	case EventStarted:
		p.current = ev.File
	case EventProgress:
		p.add(ev.File, ev.Bytes)
		p.current = ev.File
		p.render(ev.Time, false)
	case EventCompleted:
		p.add(ev.File, ev.Bytes)
		p.render(ev.Time, true)
	case EventRetry:
		fmt.Fprintf(p.w, "\n[WARN] Retrying %s in %s (%d attempts remaining): %v\n",
			ev.File, ev.Delay.Round(time.Second), ev.AttemptsLeft, ev.Err)
	case EventFailed:
		fmt.Fprintf(p.w, "\n[WARN] Failed %s: %v\n", ev.File, ev.Err)
	}
}

// Done closes the progress line.
func (p *Printer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render(p.lastTick, true)
	fmt.Fprintln(p.w)
}

func (p *Printer) add(file string, bytes int64) {
	if prev := p.perFile[file]; bytes > prev {
		p.doneBytes += bytes - prev
		p.perFile[file] = bytes
	}
}

func (p *Printer) render(now time.Time, force bool) {
	if now.IsZero() {
		now = time.Now()
	}
	// about ten redraws per second
	if !force && now.Sub(p.lastTick) < p.Throttle {
		return
	}
	p.lastTick = now
	rate := utils.HumanRate(p.doneBytes, now.Sub(p.start))

	if p.totalBytes > 0 {
		done := min(p.doneBytes, p.totalBytes)
		pct := float64(done) / float64(p.totalBytes) * 100
		fmt.Fprintf(p.w, "\rProgress: %6.2f%% (%s / %s) %s %s   ",
			pct, utils.HumanSize(done), utils.HumanSize(p.totalBytes), rate, p.current)
		return
	}
	ch := spinner[p.spinIdx%len(spinner)]
	p.spinIdx++
	fmt.Fprintf(p.w, "\rProgress: [%c] %s %s %s   ", ch, utils.HumanSize(p.doneBytes), rate, p.current)
}
