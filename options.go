// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"golang.org/x/exp/slog"
)

type config struct {
	logger *slog.Logger
	name   string
	mapped bool
}

// Option represents a configuration option shared by all allocators in this package.
type Option func(*config)

// WithLogger sets the logger used for lifecycle and contract violation records.
// Allocators log through slog.Default() when no logger is given.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithName sets the name reported in log records and statistics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithMappedStorage backs a pool's slots with an anonymous memory mapping instead of the Go heap.
// It has no effect on allocators that operate over caller-supplied memory.
func WithMappedStorage() Option {
	return func(c *config) {
		c.mapped = true
	}
}

func newConfig(kind string, opts []Option) config {
	c := config{
		logger: slog.Default(),
		name:   kind,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("arena", c.name))
	return c
}
