package util

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/thushan/striker/internal/core/constants"
)

var ErrBackoffExhausted = errors.New("backoff: no trials remaining")

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Backoff hands out trial indices 0..maxTries-1, sleeping between them.
// Trial 0 is immediate; the wait before trial i+1 is initialDelay * 2^i,
// optionally capped. Nothing sleeps after the final trial.
//
// A Backoff is single use and not safe for concurrent use.
type Backoff struct {
	err      error
	sleep    Sleeper
	delay    time.Duration
	maxDelay time.Duration
	maxTries int
	trial    int
}

type BackoffOption func(*Backoff)

// WithInitialDelay sets the wait before the second trial (default 1s).
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.delay = d
	}
}

// WithMaxDelay caps every wait at d. Zero or negative leaves the delay uncapped.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.maxDelay = d
	}
}

// WithSleeper replaces the sleep between trials, mostly for tests.
func WithSleeper(s Sleeper) BackoffOption {
	return func(b *Backoff) {
		if s != nil {
			b.sleep = s
		}
	}
}

// NewBackoff creates a sequence of maxTries trials. Negative counts are treated as zero.
func NewBackoff(maxTries int, opts ...BackoffOption) *Backoff {
	if maxTries < 0 {
		maxTries = 0
	}

	b := &Backoff{
		maxTries: maxTries,
		delay:    constants.DefaultInitialBackoff,
		maxDelay: constants.DefaultMaxBackoff,
		sleep:    SleepWithContext,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.delay < 0 {
		b.delay = 0
	}
	b.delay = b.capped(b.delay)

	return b
}

// HasNext reports whether another trial index remains.
func (b *Backoff) HasNext() bool {
	return b.trial < b.maxTries
}

// Next returns the next trial index, first sleeping if this is not the first trial.
// Once exhausted it returns ErrBackoffExhausted without sleeping. If ctx ends
// during the sleep, the context error is returned and no trial is consumed.
func (b *Backoff) Next(ctx context.Context) (int, error) {
	if !b.HasNext() {
		return 0, ErrBackoffExhausted
	}

	if b.trial > 0 {
		if err := b.sleep(ctx, b.delay); err != nil {
			b.err = err
			return 0, err
		}
		b.delay = b.capped(doubleDuration(b.delay))
	}

	trial := b.trial
	b.trial++
	return trial, nil
}

// Trials exposes the sequence to range loops:
//
//	for trial := range b.Trials(ctx) { ... }
//
// Breaking out of the loop stops any further sleeping. A cancelled context ends
// the loop early; check Err afterwards to tell that apart from exhaustion.
func (b *Backoff) Trials(ctx context.Context) iter.Seq[int] {
	return func(yield func(int) bool) {
		for b.HasNext() {
			trial, err := b.Next(ctx)
			if err != nil {
				return
			}
			if !yield(trial) {
				return
			}
		}
	}
}

// Delay is the wait that precedes the next trial (zero before trial 0).
func (b *Backoff) Delay() time.Duration {
	if b.trial == 0 {
		return 0
	}
	return b.delay
}

// Err returns the error that interrupted the last sleep, if any.
func (b *Backoff) Err() error {
	return b.err
}

func (b *Backoff) capped(d time.Duration) time.Duration {
	if b.maxDelay > 0 && d > b.maxDelay {
		return b.maxDelay
	}
	return d
}

// BackoffSchedule lists the waits between consecutive trials of a sequence
// built with the same arguments, without sleeping. It has maxTries-1 entries.
func BackoffSchedule(maxTries int, opts ...BackoffOption) []time.Duration {
	var delays []time.Duration
	record := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	b := NewBackoff(maxTries, append(opts, WithSleeper(record))...)
	for range b.Trials(context.Background()) {
	}
	return delays
}

// SleepWithContext sleeps for d but returns early with an error when ctx is done.
// Zero or negative durations return immediately.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	}
}

func doubleDuration(d time.Duration) time.Duration {
	if d > math.MaxInt64/2 {
		return time.Duration(math.MaxInt64)
	}
	return d * 2
}
