package models

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jgaeb/no-news/chat"
	"github.com/jgaeb/no-news/rate_limit"
	"github.com/jgaeb/no-news/utils/logger"
)

// maxAttempts bounds how many times one logical call hits the vendor API.
const maxAttempts = 3

// Backoff jitter band. The base wait is drawn once per call and doubles
// after each transient failure, so concurrent callers retrying the same
// outage spread out instead of stampeding.
const (
	minJitter = 0.8
	maxJitter = 1.25
)

// sleep waits out one backoff interval, or returns early with the context
// error. Swapped out in tests to observe the backoff schedule without
// real waiting.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// invoke runs one logical call against a backend: estimate tokens once,
// admit once, then attempt up to maxAttempts times. The token limiter is
// charged the same estimate before every attempt because each retry is a
// fresh request against the vendor's token budget. Transient errors back
// off and retry; everything else returns immediately. The admission slot
// (gate permit or pooled handle) is held across all attempts and released
// on every exit path.
func invoke(
	ctx context.Context,
	model string,
	backend chat.Backend,
	tokens *rate_limit.Limiter,
	req chat.Request,
	unit time.Duration,
	log logger.Logger,
) (*chat.Result, error) {
	req.EstimatedTokens = backend.EstimateTokens(req)

	conn, err := backend.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	callID := uuid.New().String()[:6]
	wait := time.Duration((minJitter + rand.Float64()*(maxJitter-minJitter)) * float64(unit))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := tokens.Acquire(ctx, req.EstimatedTokens); err != nil {
			return nil, err
		}

		result, err := conn.Invoke(ctx, req)
		if err == nil {
			return result, nil
		}
		if !chat.IsTransient(err) {
			return nil, err
		}

		lastErr = err
		log.Printf("call %s to %s failed on attempt %d/%d: %v", callID, model, attempt, maxAttempts, err)
		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		wait *= 2
	}

	return nil, &chat.ExhaustedRetriesError{Model: model, Attempts: maxAttempts, Err: lastErr}
}
