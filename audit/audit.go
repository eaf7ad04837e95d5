// Package audit records the outcome of every attempt to deliver a queued
// mutation.
//
// The offline manager reports one Event per attempt. Abandoned operations
// are otherwise only visible in the log, so a Recorder is the place to alert
// on or persist them.
package audit

import (
	"time"
)

// Outcome of a single delivery attempt
type Outcome string

const (
	// OutcomeSynced the remote side accepted the mutation
	OutcomeSynced Outcome = "synced"
	// OutcomeRetry the attempt failed and the mutation stays queued
	OutcomeRetry Outcome = "retry"
	// OutcomeAbandoned the attempt failed and the retry ceiling was reached
	OutcomeAbandoned Outcome = "abandoned"
)

// Event describes one delivery attempt
type Event struct {
	At          time.Time
	OperationID string
	Endpoint    string
	Method      string
	Outcome     Outcome
	// RetryCount after the attempt
	RetryCount int
	// Error is the failure message, empty on success
	Error string
}

// Recorder receives delivery events. Record must not block for long: it is
// called from inside a sync pass.
type Recorder interface {
	Record(e Event)
}

// Func adapts a function to Recorder
type Func func(e Event)

// Record calls f(e)
func (f Func) Record(e Event) { f(e) }

// Nop discards every event
type Nop struct{}

// Record does nothing
func (Nop) Record(Event) {}
