// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"
	"time"
)

type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventRetry
	EventCompleted
	EventFailed
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventRetry:
		return "retry"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Event reports the state of one file of a batch. File is the relative
// path and identifies the file in every event.
type Event struct {
	Kind      EventKind
	Direction Direction
	File      string
	Key       string
	// Bytes moved so far; never decreases for a file, also across retries.
	Bytes int64
	// Total size, zero when unknown.
	Total int64
	// Attempt that failed, for EventRetry.
	Attempt      int
	Delay        time.Duration
	AttemptsLeft int
	Err          error
	Time         time.Time
}

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// ChannelSink sends every event on the channel. The engine blocks while
// the channel is full, so the consumer has to keep draining it.
type ChannelSink chan<- Event

func (c ChannelSink) Emit(e Event) { c <- e }

// serialSink delivers one event at a time to the caller's sink.
type serialSink struct {
	mu   sync.Mutex
	sink Sink
}

func (s *serialSink) Emit(e Event) {
	if s.sink == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Emit(e)
}
