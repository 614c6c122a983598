package playback

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-chat/core/audio"
)

// DefaultInterClipGap separates consecutive clips so sentences do not run
// into each other.
const DefaultInterClipGap = 200 * time.Millisecond

// Decoder turns an item payload into playable PCM.
type Decoder interface {
	Decode(payload string) (audio.Clip, error)
}

type OrchestratorOption func(*Orchestrator)

func WithDecoder(decoder Decoder) OrchestratorOption {
	return func(o *Orchestrator) {
		if decoder != nil {
			o.decoder = decoder
		}
	}
}

func WithInterClipGap(gap time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if gap >= 0 {
			o.gap = gap
		}
	}
}

// WithUnlockManager enables the single permission retry: when the sink
// refuses to play, the manager re-primes it and the item is tried again.
func WithUnlockManager(unlocker *UnlockManager) OrchestratorOption {
	return func(o *Orchestrator) { o.unlocker = unlocker }
}

func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type UnlockOption func(*UnlockManager)

// WithMaxAttempts bounds how many failed unlocks happen before the manager
// gives up and treats playback as unlocked.
func WithMaxAttempts(attempts int) UnlockOption {
	return func(u *UnlockManager) {
		if attempts > 0 {
			u.maxAttempts = attempts
		}
	}
}

// WithSilenceEncoding sets the encoding of the priming clip. It should
// match the encoding the sink was opened with to avoid reopening the
// device.
func WithSilenceEncoding(encoding audio.EncodingInfo) UnlockOption {
	return func(u *UnlockManager) {
		if !encoding.IsZero() {
			u.silence = audio.Silence(encoding, silenceDuration)
		}
	}
}

func WithUnlockLogger(logger *slog.Logger) UnlockOption {
	return func(u *UnlockManager) {
		if logger != nil {
			u.logger = logger
		}
	}
}
