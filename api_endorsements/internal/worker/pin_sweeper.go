package worker

import (
	"context"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

// PinExpirer is the slice of the store the sweeper needs
type PinExpirer interface {
	ExpirePins(ctx context.Context, now time.Time) (int64, error)
}

// PinSweeper clears pin state once it has expired so listings stop showing
// the pin. Pin cooldowns never depend on it having run.
type PinSweeper struct {
	store    PinExpirer
	lease    Lease
	logger   logging.Logger
	interval time.Duration
	now      func() time.Time
	onSweep  func(cleared int64)
}

func NewPinSweeper(s PinExpirer, lease Lease, interval time.Duration, l logging.Logger) *PinSweeper {
	if lease == nil {
		lease = AlwaysLeader{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &PinSweeper{
		store:    s,
		lease:    lease,
		logger:   l,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnSweep registers a callback with the number of pins cleared per pass
func (w *PinSweeper) OnSweep(fn func(cleared int64)) {
	w.onSweep = fn
}

// Start runs a sweep immediately and then on every tick until ctx is done
func (w *PinSweeper) Start(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("Starting pin sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.lease.Release(context.WithoutCancel(ctx))

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping pin sweeper")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// SweepOnce runs a single pass regardless of leadership
func (w *PinSweeper) SweepOnce(ctx context.Context) (int64, error) {
	return w.store.ExpirePins(ctx, w.now())
}

func (w *PinSweeper) sweep(ctx context.Context) {
	if !w.lease.Acquire(ctx) {
		w.logger.Debug("Pin sweep skipped, not leader")
		return
	}

	cleared, err := w.SweepOnce(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to expire pins")
		return
	}
	if w.onSweep != nil {
		w.onSweep(cleared)
	}
	if cleared > 0 {
		w.logger.WithField("count", cleared).Info("Expired pins cleared")
	}
}
