package fleet

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically demotes servers with stale heartbeats to offline.
// It is the only autonomous mutation in the registry, owned by the service
// entrypoint and cancelled at shutdown.
type Sweeper struct {
	svc          *Service
	interval     time.Duration
	offlineAfter time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewSweeper(svc *Service, interval, offlineAfter time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if offlineAfter <= 0 {
		offlineAfter = 10 * time.Minute
	}
	return &Sweeper{svc: svc, interval: interval, offlineAfter: offlineAfter}
}

func (sw *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	sw.cancel = cancel
	sw.done = make(chan struct{})

	go func() {
		defer close(sw.done)
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		zap.L().Info("fleet sweeper started",
			zap.Duration("interval", sw.interval),
			zap.Duration("offline_after", sw.offlineAfter))

		for {
			select {
			case <-ctx.Done():
				zap.L().Info("fleet sweeper stopped")
				return
			case <-ticker.C:
				n, err := sw.svc.Sweep(ctx, sw.offlineAfter)
				if err != nil {
					zap.L().Warn("fleet sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zap.L().Info("fleet sweep demoted stale servers", zap.Int64("count", n))
				}
			}
		}
	}()
}

func (sw *Sweeper) Stop() {
	if sw.cancel == nil {
		return
	}
	sw.cancel()
	<-sw.done
}
