// Package ledger answers cooldown questions from the append-only event log.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

const DefaultWindow = 12 * time.Hour

// Reader is satisfied by both store.Store and store.Tx
type Reader interface {
	LatestEvent(ctx context.Context, key store.CooldownKey) (*store.CooldownEvent, error)
}

type Ledger struct {
	window time.Duration
}

func New(window time.Duration) *Ledger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{window: window}
}

func (l *Ledger) Window() time.Duration { return l.window }

// Remaining is the cooldown left for key at now, never negative
func (l *Ledger) Remaining(ctx context.Context, r Reader, key store.CooldownKey, now time.Time) (time.Duration, error) {
	ev, err := r.LatestEvent(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return RemainingSince(ev.OccurredAt, now, l.window), nil
}

// Record appends an event. Callers must hold the cooldown lock for key.
func (l *Ledger) Record(ctx context.Context, tx store.Tx, key store.CooldownKey, now time.Time) error {
	return tx.AppendEvent(ctx, key, now)
}

// RemainingSince is window - (now - last), clamped to [0, window]
func RemainingSince(last, now time.Time, window time.Duration) time.Duration {
	elapsed := now.Sub(last)
	if elapsed < 0 {
		// clock skew between writers; treat as just happened
		elapsed = 0
	}
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}
