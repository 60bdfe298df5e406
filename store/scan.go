package store

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// scanConfig bounds the resources a metadata scan may use.
type scanConfig struct {
	// Workers is the maximum number of concurrent metadata reads.
	// If 0, defaults to 4.
	Workers int64

	// IOLimitBytesPerSec throttles scan read throughput. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// scanController gates concurrent metadata reads during filter scans.
type scanController struct {
	sem       *semaphore.Weighted
	ioLimiter *rate.Limiter
}

func newScanController(cfg scanConfig) *scanController {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	c := &scanController{
		sem: semaphore.NewWeighted(cfg.Workers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// acquire reserves a scan worker slot, blocking until one is free.
func (c *scanController) acquire(ctx context.Context) error {
	return c.sem.Acquire(ctx, 1)
}

func (c *scanController) release() {
	c.sem.Release(1)
}

// waitIO blocks until the IO budget allows reading the given bytes.
func (c *scanController) waitIO(ctx context.Context, bytes int) error {
	if c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	b := c.ioLimiter.Burst()
	for bytes > b {
		if err := c.ioLimiter.WaitN(ctx, b); err != nil {
			return err
		}
		bytes -= b
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
