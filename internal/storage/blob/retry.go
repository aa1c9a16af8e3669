package blob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portfolio/internal/lib/logger/sl"

	"github.com/cenkalti/backoff/v4"
)

type RetryPolicy struct {
	// WriteRetries is the number of extra Upload attempts after the first.
	WriteRetries    uint64
	WriteInitial    time.Duration
	WriteMaxBackoff time.Duration
	// ReadRetries is the number of extra Download attempts after a transport
	// failure. ErrNotFound is never retried.
	ReadRetries uint64
	ReadBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		WriteRetries:    3,
		WriteInitial:    time.Second,
		WriteMaxBackoff: 4 * time.Second,
		ReadRetries:     1,
		ReadBackoff:     200 * time.Millisecond,
	}
}

// Retrying decorates a Store with bounded exponential backoff on uploads and
// a short retry on transient download failures. Other operations pass through.
type Retrying struct {
	Store
	log     *slog.Logger
	policy  RetryPolicy
	onRetry func(op string)
}

func NewRetrying(log *slog.Logger, store Store, policy RetryPolicy, onRetry func(op string)) *Retrying {
	if onRetry == nil {
		onRetry = func(string) {}
	}

	return &Retrying{
		Store:   store,
		log:     log,
		policy:  policy,
		onRetry: onRetry,
	}
}

func (r *Retrying) Upload(ctx context.Context, path string, data []byte, opts PutOptions) error {
	const op = "blob.Retrying.Upload"

	log := r.log.With(
		slog.String("op", op),
		slog.String("path", path),
	)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.WriteInitial
	b.MaxInterval = r.policy.WriteMaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0

	err := r.retry(ctx, log, "upload", b, r.policy.WriteRetries, func() error {
		return r.Store.Upload(ctx, path, data, opts)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Retrying) Download(ctx context.Context, path string) ([]byte, error) {
	const op = "blob.Retrying.Download"

	log := r.log.With(
		slog.String("op", op),
		slog.String("path", path),
	)

	var data []byte

	err := r.retry(ctx, log, "download", backoff.NewConstantBackOff(r.policy.ReadBackoff), r.policy.ReadRetries, func() error {
		var err error
		data, err = r.Store.Download(ctx, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (r *Retrying) retry(ctx context.Context, log *slog.Logger, name string, b backoff.BackOff, retries uint64, fn func() error) error {
	operation := func() error {
		err := fn()
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.onRetry(name)
		log.Warn("blob store call failed, retrying", sl.Err(err), slog.Duration("wait", wait))
	}

	return backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx), notify)
}
