package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/koscakluka/ema-chat/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	silenceDuration = 50 * time.Millisecond

	DefaultUnlockAttempts = 3
)

// UnlockManager primes the audio output before the first real clip plays.
//
// Outputs refuse audio until they were started; the manager starts the
// sink and plays a short silent clip through it. Once that worked, every
// further EnsureUnlocked returns immediately.
type UnlockManager struct {
	mu sync.Mutex

	unlocked    bool
	attempts    int
	maxAttempts int

	sink    audio.Sink
	silence audio.Clip
	logger  *slog.Logger
}

func NewUnlockManager(sink audio.Sink, opts ...UnlockOption) *UnlockManager {
	u := &UnlockManager{
		sink:        sink,
		maxAttempts: DefaultUnlockAttempts,
		silence:     audio.Silence(audio.GetDefaultEncodingInfo(), silenceDuration),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnlockManager) Unlocked() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.unlocked
}

// EnsureUnlocked primes the sink unless that already happened.
//
// Failures are not fatal: the error is returned for logging, and after
// maxAttempts failed calls the manager marks itself unlocked anyway so
// later playback is at least attempted instead of never trying again.
func (u *UnlockManager) EnsureUnlocked(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.unlocked {
		return nil
	}

	ctx, span := tracer.Start(ctx, "unlock playback")
	defer span.End()

	u.attempts++
	span.SetAttributes(attribute.Int("unlock.attempt", u.attempts))

	err := u.prime(ctx)
	if err == nil {
		u.unlocked = true
		u.logger.Debug("playback unlocked", slog.Int("attempt", u.attempts))
		return nil
	}

	err = fmt.Errorf("failed to unlock playback: %w", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if u.attempts >= u.maxAttempts {
		u.unlocked = true
		u.logger.Warn("treating playback as unlocked after repeated failures",
			slog.Int("attempts", u.attempts),
			slog.String("error", err.Error()),
		)
	} else {
		u.logger.Warn("playback unlock failed", slog.Int("attempt", u.attempts), slog.String("error", err.Error()))
	}
	return err
}

// ForceUnlock primes the sink again even if it was considered unlocked.
// Used when real playback was refused despite an earlier unlock.
func (u *UnlockManager) ForceUnlock(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	ctx, span := tracer.Start(ctx, "force unlock playback")
	defer span.End()

	u.unlocked = false
	if err := u.prime(ctx); err != nil {
		err = fmt.Errorf("failed to unlock playback: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	u.unlocked = true
	return nil
}

// prime expects u.mu to be held.
func (u *UnlockManager) prime(ctx context.Context) error {
	if u.sink == nil {
		return fmt.Errorf("no audio sink configured")
	}

	if starter, ok := u.sink.(audio.Starter); ok {
		if err := starter.Start(ctx); err != nil {
			return fmt.Errorf("failed to start output: %w", err)
		}
	}

	if err := u.sink.Play(ctx, u.silence); err != nil {
		return fmt.Errorf("failed to play silence: %w", err)
	}
	return nil
}
