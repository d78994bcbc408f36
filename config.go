// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the tunables of a context and its sockets. It is loaded from
// the environment by LoadConfig.
type Config struct {
	// IPCRoot is the directory holding the cross-process channels.
	IPCRoot string `env:"MSGPUBSUB_IPC_ROOT" envDefault:"/tmp/docker_share"`

	// HighWaterMark bounds every send and receive queue. Messages beyond it
	// are dropped.
	HighWaterMark int `env:"MSGPUBSUB_HWM" envDefault:"1000"`

	// LoopPollInterval is the bounded wait of one receive-loop iteration.
	LoopPollInterval time.Duration `env:"MSGPUBSUB_LOOP_POLL" envDefault:"100ms"`

	// ReconnectInterval is the pause between two dial attempts of an ipc
	// subscriber.
	ReconnectInterval time.Duration `env:"MSGPUBSUB_RECONNECT_INTERVAL" envDefault:"100ms"`

	// DialTimeout bounds one ipc dial attempt.
	DialTimeout time.Duration `env:"MSGPUBSUB_DIAL_TIMEOUT" envDefault:"1s"`
}

// DefaultConfig returns the built-in defaults, ignoring the environment.
func DefaultConfig() Config {
	return Config{
		IPCRoot:           DefaultIPCRoot,
		HighWaterMark:     1000,
		LoopPollInterval:  100 * time.Millisecond,
		ReconnectInterval: 100 * time.Millisecond,
		DialTimeout:       time.Second,
	}
}

func (c Config) validate() error {
	switch {
	case c.IPCRoot == "":
		return fmt.Errorf("%w: empty ipc root", ErrInvalidConfig)
	case c.HighWaterMark <= 0:
		return fmt.Errorf("%w: high water mark must be positive, got %d", ErrInvalidConfig, c.HighWaterMark)
	case c.LoopPollInterval <= 0:
		return fmt.Errorf("%w: loop poll interval must be positive", ErrInvalidConfig)
	case c.ReconnectInterval <= 0:
		return fmt.Errorf("%w: reconnect interval must be positive", ErrInvalidConfig)
	case c.DialTimeout <= 0:
		return fmt.Errorf("%w: dial timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

var (
	envOnce   sync.Once
	envConfig Config
	envErr    error
)

// LoadConfig parses the environment, after loading a .env file when one
// exists. The result is cached for the process lifetime.
func LoadConfig() (Config, error) {
	envOnce.Do(func() {
		// the .env file is optional
		_ = godotenv.Load()
		envConfig, envErr = parseConfig()
	})
	return envConfig, envErr
}

func parseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// settings is the resolved configuration of one context or socket.
type settings struct {
	Config

	logger     *slog.Logger
	dump       io.Writer
	dumpFilter DumpFilter
}

// Option configures a Context, Publisher or Subscriber.
//
// Options passed to NewContext become the defaults of every socket created on
// that context; options passed to a socket constructor apply to that socket
// only.
type Option func(*settings)

// WithConfig replaces the whole Config.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.Config = cfg }
}

func WithIPCRoot(dir string) Option {
	return func(s *settings) { s.IPCRoot = dir }
}

func WithHighWaterMark(n int) Option {
	return func(s *settings) { s.HighWaterMark = n }
}

func WithLoopPollInterval(d time.Duration) Option {
	return func(s *settings) { s.LoopPollInterval = d }
}

func WithReconnectInterval(d time.Duration) Option {
	return func(s *settings) { s.ReconnectInterval = d }
}

// WithLogger sets the logger, nil keeps the current one.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMessageDump dumps every message crossing an ipc connection to w.
// The filter can be nil, see MessageDump.
func WithMessageDump(w io.Writer, filter DumpFilter) Option {
	return func(s *settings) {
		s.dump = w
		s.dumpFilter = filter
	}
}

func (s settings) apply(opts []Option) (settings, error) {
	for _, o := range opts {
		if o != nil {
			o(&s)
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := s.Config.validate(); err != nil {
		return s, err
	}
	return s, nil
}
