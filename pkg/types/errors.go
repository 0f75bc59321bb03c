// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionNotFound is returned by session stores for unknown identifiers.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSchedulerRunning is returned when Run is called on a scheduler that
	// already has an active run.
	ErrSchedulerRunning = errors.New("scheduler already running")

	// ErrStoreClosed is returned by stores after Close.
	ErrStoreClosed = errors.New("session store closed")
)

// PlanningError marks a source that could not be planned (unreadable or
// unstat-able). Fatal for that file only; sibling files in a directory
// upload continue.
type PlanningError struct {
	Path string
	Err  error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("plan %s: %v", e.Path, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// IntegrityError marks a checksum mismatch between the planned digest and
// the bytes on disk. It means the source changed after planning; the chunk
// must not be retried and the session needs a re-plan.
type IntegrityError struct {
	ChunkID  string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("chunk %s: checksum mismatch (want %s, got %s)", e.ChunkID, e.Expected, e.Actual)
}

// TransientError marks a failure worth retrying with backoff: network
// errors, timeouts, 5xx-class remote responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitedError is the global backpressure signal. The scheduler stops
// admitting work until ResetAt; the attempt does not count against the
// chunk's retry budget.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// PermanentError marks a failure that retrying cannot fix (auth, 4xx other
// than rate limit). The chunk is failed permanently; the session continues
// for other chunks.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a permanent remote rejection.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsIntegrity reports whether err is a checksum mismatch.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsRateLimited reports whether err carries a rate-limit signal and, if so,
// the time uploads may resume.
func IsRateLimited(err error) (time.Time, bool) {
	var re *RateLimitedError
	if errors.As(err, &re) {
		return re.ResetAt, true
	}
	return time.Time{}, false
}
