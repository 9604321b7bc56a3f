package serialmux

import (
	"log/slog"
)

// DefaultBufferSize is the receive buffer capacity of a link
const DefaultBufferSize = 8192

// Config holds the configuration for a Registry
type Config struct {
	Transport  Transport
	Logger     *slog.Logger
	BufferSize int
}

// Option is a functional option for configuring a Registry
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Transport:  UnixTransport{},
		Logger:     slog.New(slog.DiscardHandler),
		BufferSize: DefaultBufferSize,
	}
}

// WithTransport sets the transport used to open links
func WithTransport(t Transport) Option {
	return func(c *Config) error {
		if t == nil {
			return ErrInvalidConfig
		}
		c.Transport = t
		return nil
	}
}

// WithLogger sets the logger for connection lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return ErrInvalidConfig
		}
		c.Logger = l
		return nil
	}
}

// WithBufferSize sets the receive buffer capacity of every link
func WithBufferSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return ErrInvalidConfig
		}
		c.BufferSize = size
		return nil
	}
}
