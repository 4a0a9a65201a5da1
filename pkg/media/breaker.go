package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/metrics"
)

// ErrStorageUnavailable is returned while the breaker is open.
var ErrStorageUnavailable = errors.New("media storage temporarily unavailable")

// BreakerUploader stops calling object storage after consecutive failures.
type BreakerUploader struct {
	next Uploader
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerUploader wraps next with a circuit breaker named name.
func NewBreakerUploader(name string, next Uploader, logger *zap.Logger) *BreakerUploader {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about storage health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerUploader{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Upload forwards to the wrapped uploader unless the breaker is open.
func (b *BreakerUploader) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error) {
	start := time.Now()
	url, err := b.cb.Execute(func() (string, error) {
		return b.next.Upload(ctx, r, opts)
	})
	kind := opts.Folder
	metrics.MediaUploadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.MediaUploads.WithLabelValues(kind, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrStorageUnavailable
		}
		return "", err
	}
	metrics.MediaUploads.WithLabelValues(kind, "success").Inc()
	return url, nil
}

// State exposes the breaker state.
func (b *BreakerUploader) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
