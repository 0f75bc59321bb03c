// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler drives the concurrent upload of a session's chunks.
//
// One Run owns one session record. A single dispatcher goroutine admits
// pending chunks to a bounded worker set and applies every worker result to
// the session record before admitting more work, so the persisted record
// always reflects acknowledged state. Worker results follow the remote
// result contract: transient failures retry with exponential backoff,
// rate-limit signals suspend all admissions until the advertised reset time,
// permanent rejections fail the chunk, and integrity mismatches halt the
// whole run.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/midnightnow/hardcard-smart-github-hub/pkg/integrity"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/logger"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/remote"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/session"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/types"
	"github.com/midnightnow/hardcard-smart-github-hub/pkg/utils"
)

// Config holds scheduler tuning.
type Config struct {
	// MaxConcurrent is the number of chunks in flight at once
	MaxConcurrent int

	// MaxRetries is the total attempt budget per chunk for transient failures
	MaxRetries int

	// BackoffUnit scales the exponential retry delay: the n-th retry of a
	// chunk waits 2^(n-1) units
	BackoffUnit time.Duration

	// RateLimit is the max chunk admissions/sec (0 = unlimited)
	RateLimit int

	// Verify re-hashes each chunk before sending and refuses bytes that no
	// longer match the plan
	Verify bool
}

// DefaultConfig returns the stock scheduler tuning.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		MaxRetries:    3,
		BackoffUnit:   time.Second,
		RateLimit:     0,
		Verify:        true,
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	// Uploaded counts chunks confirmed during this run
	Uploaded int

	// Failed counts the session's permanently failed chunks after the run
	Failed int

	// Pending counts chunks still awaiting upload (interrupted runs)
	Pending int

	// Bytes confirmed during this run
	Bytes int64

	Duration time.Duration

	// Canceled is set when the run stopped on context cancellation
	Canceled bool
}

// Scheduler uploads session chunks through a remote store. A scheduler runs
// one session at a time; concurrent Run calls are rejected.
type Scheduler struct {
	config  Config
	remote  remote.Store
	store   session.Store
	limiter *rate.Limiter

	running atomic.Bool

	chunksUploaded atomic.Int64
	bytesUploaded  atomic.Int64
}

// New creates a scheduler. Out-of-range config values are clamped.
func New(config Config, rs remote.Store, st session.Store) *Scheduler {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.BackoffUnit <= 0 {
		config.BackoffUnit = time.Second
	}
	if config.RateLimit < 0 {
		config.RateLimit = 0
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}

	return &Scheduler{
		config:  config,
		remote:  rs,
		store:   st,
		limiter: limiter,
	}
}

// IsRunning returns true while a Run is in progress.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Stats returns counters accumulated across runs.
func (s *Scheduler) Stats() (chunksUploaded, bytesUploaded int64, inFlight int) {
	return s.chunksUploaded.Load(), s.bytesUploaded.Load(), int(getGaugeValue(chunksInFlight))
}

// Run uploads every pending chunk of sess, honoring backoff, rate-limit
// suspensions and the retry budget. It blocks until the session has no
// admissible work left or ctx is canceled. The session record is saved after
// every applied chunk transition, so an interrupt at any point resumes from
// the last acknowledged chunk.
//
// Permanent chunk failures do not fail the run; they are reported through
// the Outcome and the session record. An integrity mismatch does fail the
// run, after in-flight uploads have drained.
func (s *Scheduler) Run(ctx context.Context, sess *types.UploadSession) (Outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Outcome{}, types.ErrSchedulerRunning
	}
	defer s.running.Store(false)

	start := time.Now()

	// A record reloaded after a crash can carry chunks marked uploading.
	// They were never acknowledged, so they are pending again.
	for _, c := range sess.Chunks {
		if c.Status == types.ChunkUploading {
			c.Status = types.ChunkPending
		}
	}
	sess.RecomputeProgress()
	if err := s.store.Save(sess); err != nil {
		return Outcome{}, fmt.Errorf("persist session %s: %w", sess.ID, err)
	}

	logger.Info().
		Str("session_id", sess.ID).
		Int("total_chunks", sess.TotalChunks()).
		Int("pending", len(sess.PendingChunks())).
		Int("max_concurrent", s.config.MaxConcurrent).
		Msg("scheduler: run starting")

	r := &run{
		sched:     s,
		sess:      sess,
		results:   make(chan result, s.config.MaxConcurrent),
		notBefore: make(map[string]time.Time),
	}
	err := r.loop(ctx)

	out := Outcome{
		Uploaded: r.uploaded,
		Failed:   len(sess.FailedChunks()),
		Pending:  len(sess.PendingChunks()),
		Bytes:    r.bytes,
		Duration: time.Since(start),
		Canceled: errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
	}

	logger.Info().
		Str("session_id", sess.ID).
		Int("uploaded", out.Uploaded).
		Int("failed", out.Failed).
		Int("pending", out.Pending).
		Int64("bytes", out.Bytes).
		Dur("duration", out.Duration).
		Bool("completed", sess.Completed).
		Msg("scheduler: run finished")

	return out, err
}

// result is one worker's report back to the dispatcher.
type result struct {
	chunk    *types.Chunk
	duration time.Duration
	err      error
}

// run is the per-invocation dispatcher state. The loop goroutine owns the
// session record and the scheduling maps; workers only read their own chunk
// and report over the results channel.
type run struct {
	sched *Scheduler
	sess  *types.UploadSession

	results chan result

	// notBefore delays individual chunks waiting out a retry backoff
	notBefore map[string]time.Time

	// suspendedUntil blocks all admissions during a rate-limit window
	suspendedUntil time.Time

	inflight int
	uploaded int
	bytes    int64

	// set on a checksum mismatch; stops admissions, surfaces after drain
	integrityErr error
}

func (r *run) loop(ctx context.Context) error {
	cfg := r.sched.config

	for {
		if ctx.Err() != nil || r.integrityErr != nil {
			break
		}

		now := time.Now()
		if next := r.nextEligible(now); next != nil && r.inflight < cfg.MaxConcurrent {
			r.launch(ctx, next)
			continue
		}

		wake, waiting := r.earliestWake(now)
		if r.inflight == 0 && !waiting {
			break // no admissible work left
		}

		// Wait for a worker result, for the next backoff or suspension
		// expiry (only useful while a slot is free), or for cancellation.
		var timer *time.Timer
		var wakeCh <-chan time.Time
		if waiting && r.inflight < cfg.MaxConcurrent {
			timer = time.NewTimer(wake.Sub(now))
			wakeCh = timer.C
		}

		select {
		case <-ctx.Done():
		case res := <-r.results:
			r.apply(res)
		case <-wakeCh:
		}
		if timer != nil {
			timer.Stop()
		}
	}

	r.drain()

	if r.integrityErr != nil {
		return r.integrityErr
	}
	return ctx.Err()
}

// nextEligible returns the lowest-indexed pending chunk not waiting out a
// backoff or a rate-limit suspension.
func (r *run) nextEligible(now time.Time) *types.Chunk {
	if now.Before(r.suspendedUntil) {
		return nil
	}
	for _, c := range r.sess.Chunks {
		if c.Status != types.ChunkPending {
			continue
		}
		if nb, ok := r.notBefore[c.ID]; ok && now.Before(nb) {
			continue
		}
		return c
	}
	return nil
}

// earliestWake returns the soonest instant any pending chunk becomes
// admissible again.
func (r *run) earliestWake(now time.Time) (time.Time, bool) {
	var wake time.Time
	for _, c := range r.sess.Chunks {
		if c.Status != types.ChunkPending {
			continue
		}
		at := now
		if nb, ok := r.notBefore[c.ID]; ok && nb.After(at) {
			at = nb
		}
		if r.suspendedUntil.After(at) {
			at = r.suspendedUntil
		}
		if wake.IsZero() || at.Before(wake) {
			wake = at
		}
	}
	return wake, !wake.IsZero()
}

func (r *run) launch(ctx context.Context, c *types.Chunk) {
	c.Status = types.ChunkUploading
	r.inflight++
	chunksInFlight.Inc()

	go func() {
		started := time.Now()
		err := r.sched.attempt(ctx, r.sess.ID, c)
		r.results <- result{chunk: c, duration: time.Since(started), err: err}
	}()
}

// drain collects results for chunks still in flight after admissions stop,
// so their outcomes are recorded and no worker outlives the run.
func (r *run) drain() {
	for r.inflight > 0 {
		r.apply(<-r.results)
	}
}

// apply moves one chunk through the state machine based on its attempt
// result, then checkpoints the session.
func (r *run) apply(res result) {
	c := res.chunk
	r.inflight--
	chunksInFlight.Dec()

	switch {
	case res.err == nil:
		now := time.Now()
		c.Status = types.ChunkUploaded
		c.UploadedAt = &now
		delete(r.notBefore, c.ID)
		r.uploaded++
		r.bytes += c.Size
		r.sched.chunksUploaded.Add(1)
		r.sched.bytesUploaded.Add(c.Size)
		chunksProcessedTotal.WithLabelValues(resultUploaded).Inc()
		bytesUploadedTotal.Add(float64(c.Size))
		chunkUploadDuration.WithLabelValues(string(r.sched.remote.Type())).Observe(res.duration.Seconds())
		logger.Debug().
			Str("chunk_id", c.ID).
			Int64("size", c.Size).
			Dur("duration", res.duration).
			Msg("scheduler: chunk uploaded")

	case errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded):
		// The run is shutting down. The attempt never completed, so it does
		// not count against the retry budget.
		c.Status = types.ChunkPending
		chunksProcessedTotal.WithLabelValues(resultCanceled).Inc()

	case types.IsIntegrity(res.err):
		c.Status = types.ChunkFailedPermanently
		if r.integrityErr == nil {
			r.integrityErr = res.err
		}
		chunksProcessedTotal.WithLabelValues(resultIntegrity).Inc()
		logger.Error().
			Err(res.err).
			Str("chunk_id", c.ID).
			Msg("scheduler: checksum mismatch, halting run")

	case types.IsPermanent(res.err):
		c.Status = types.ChunkFailedPermanently
		chunksProcessedTotal.WithLabelValues(resultPermanent).Inc()
		logger.Error().
			Err(res.err).
			Str("chunk_id", c.ID).
			Msg("scheduler: chunk failed permanently")

	default:
		if resetAt, ok := types.IsRateLimited(res.err); ok {
			// Global backpressure: the chunk goes back unpenalized and
			// nothing new is admitted until the reset, stretched by up-only
			// jitter so suspended uploaders do not resume in step.
			c.Status = types.ChunkPending
			until := resetAt
			if d := time.Until(resetAt); d > 0 {
				until = time.Now().Add(utils.JitterUp(d, 0.1))
			}
			if until.After(r.suspendedUntil) {
				r.suspendedUntil = until
			}
			rateLimitSuspensionsTotal.Inc()
			chunksProcessedTotal.WithLabelValues(resultRateLimited).Inc()
			logger.Warn().
				Str("chunk_id", c.ID).
				Time("reset_at", resetAt).
				Msg("scheduler: rate limited, suspending admissions")
			break
		}
		r.retry(c, res.err)
	}

	r.persist()
}

// retry schedules the next attempt with exponential backoff, or fails the
// chunk once its budget is spent. The n-th failure of a chunk waits
// 2^(n-1) backoff units, jittered so resumed sessions do not synchronize
// their retries.
func (r *run) retry(c *types.Chunk, cause error) {
	delay := utils.Jitter(time.Duration(1<<uint(c.RetryCount))*r.sched.config.BackoffUnit, 0.1)
	c.RetryCount++

	if c.RetryCount >= r.sched.config.MaxRetries {
		c.Status = types.ChunkFailedPermanently
		delete(r.notBefore, c.ID)
		chunksProcessedTotal.WithLabelValues(resultPermanent).Inc()
		logger.Error().
			Err(cause).
			Str("chunk_id", c.ID).
			Int("attempts", c.RetryCount).
			Msg("scheduler: retries exhausted")
		return
	}

	c.Status = types.ChunkPending
	r.notBefore[c.ID] = time.Now().Add(delay)
	chunksProcessedTotal.WithLabelValues(resultTransient).Inc()
	retriesTotal.Inc()
	logger.Warn().
		Err(cause).
		Str("chunk_id", c.ID).
		Int("retry", c.RetryCount).
		Dur("backoff", delay).
		Msg("scheduler: transient failure, backing off")
}

// persist checkpoints the session record. Checkpoint failures do not stop
// the run; the next applied result retries the write.
func (r *run) persist() {
	r.sess.RecomputeProgress()
	if err := r.sched.store.Save(r.sess); err != nil {
		logger.Error().
			Err(err).
			Str("session_id", r.sess.ID).
			Msg("scheduler: session checkpoint failed")
	}
}

// attempt uploads one chunk. The returned error is nil or one of the remote
// result types; anything unclassified counts as transient.
func (s *Scheduler) attempt(ctx context.Context, sessionID string, c *types.Chunk) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	f, err := os.Open(c.SourceFile)
	if err != nil {
		// The source is gone or unreadable; retrying cannot fix that.
		return &types.PermanentError{Err: err}
	}
	defer f.Close()

	buf := make([]byte, c.Size)
	n, err := f.ReadAt(buf, c.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return &types.TransientError{Err: err}
	}
	if n < len(buf) {
		// The source shrank since planning.
		return &types.IntegrityError{ChunkID: c.ID, Expected: c.Checksum, Actual: "short read"}
	}

	if s.config.Verify {
		if sum := integrity.ChecksumBytes(buf); sum != c.Checksum {
			return &types.IntegrityError{ChunkID: c.ID, Expected: c.Checksum, Actual: sum}
		}
	}

	meta := remote.Metadata{
		SessionID:   sessionID,
		SourceFile:  c.SourceFile,
		Index:       c.Index,
		TotalChunks: c.TotalChunks,
		Size:        c.Size,
		SHA256:      c.Checksum,
		CRC64:       integrity.CRC64Bytes(buf),
	}

	return s.remote.Put(ctx, c.ID, bytes.NewReader(buf), meta)
}
