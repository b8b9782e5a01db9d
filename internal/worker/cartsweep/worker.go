package cartsweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/metrics"
	"github.com/spf13/viper"
)

type service interface {
	EvictIdle(idle time.Duration) int
}

// Worker drops in-memory carts nobody has touched for a while.
type Worker struct {
	service       service
	sweepInterval time.Duration
	idleTTL       time.Duration
	stopCh        chan struct{}
}

// NewWorker creates a new cart sweep worker.
func NewWorker(service service) *Worker {
	sweepIntervalSeconds := viper.GetInt("cart.sweep_interval_seconds")
	if sweepIntervalSeconds == 0 {
		sweepIntervalSeconds = 300
	}

	idleTTLMinutes := viper.GetInt("cart.idle_ttl_minutes")
	if idleTTLMinutes == 0 {
		idleTTLMinutes = 24 * 60
	}

	return &Worker{
		service:       service,
		sweepInterval: time.Duration(sweepIntervalSeconds) * time.Second,
		idleTTL:       time.Duration(idleTTLMinutes) * time.Minute,
		stopCh:        make(chan struct{}),
	}
}

// Start runs sweeps until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	slog.Info("Cart sweep worker started", "sweep_interval", w.sweepInterval, "idle_ttl", w.idleTTL)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Cart sweep worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Cart sweep worker stopped")

			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) runOnce() {
	evicted := w.service.EvictIdle(w.idleTTL)
	if evicted > 0 {
		metrics.EvictedCarts.Add(float64(evicted))
		slog.Info("Evicted idle carts", "count", evicted)
	}
}
