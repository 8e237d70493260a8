// Package wsiocp
// Author: momentics <momentics@gmail.com>

package wsiocp

import (
	"github.com/momentics/hioload-iocp/control"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/sirupsen/logrus"
)

// Address families accepted by Config.AddressFamily.
const (
	AFInet  = 2
	AFInet6 = 23
)

// Config holds the tunables of a Context.
type Config struct {
	AddressFamily   int    // family of pre-created accept sockets
	AddressSize     uint32 // bytes per address slot, sizeof(sockaddr_storage)
	AcceptSlack     int    // extra bytes after the two address slots
	DrainBufferSize int    // recv chunk used by graceful detach
}

// DefaultConfig returns the defaults used when no config is supplied.
func DefaultConfig() Config {
	return Config{
		AddressFamily:   AFInet,
		AddressSize:     128,
		AcceptSlack:     64,
		DrainBufferSize: 100,
	}
}

// ConfigFromStore overlays values found in cs on the defaults. Keys are
// "address_family", "address_size", "accept_slack" and "drain_buffer_size".
func ConfigFromStore(cs *control.ConfigStore) Config {
	cfg := DefaultConfig()
	cfg.AddressFamily = cs.Int("address_family", cfg.AddressFamily)
	cfg.AddressSize = uint32(cs.Int("address_size", int(cfg.AddressSize)))
	cfg.AcceptSlack = cs.Int("accept_slack", cfg.AcceptSlack)
	cfg.DrainBufferSize = cs.Int("drain_buffer_size", cfg.DrainBufferSize)
	return cfg
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.AddressFamily == 0 {
		c.AddressFamily = def.AddressFamily
	}
	if c.AddressSize == 0 {
		c.AddressSize = def.AddressSize
	}
	if c.AcceptSlack < 0 {
		c.AcceptSlack = 0
	}
	if c.DrainBufferSize <= 0 {
		c.DrainBufferSize = def.DrainBufferSize
	}
}

// Option customizes a Context.
type Option func(*Context)

// WithSys replaces the socket primitives.
func WithSys(sys Sys) Option {
	return func(c *Context) { c.sys = sys }
}

// WithConfig overrides the defaults.
func WithConfig(cfg Config) Option {
	return func(c *Context) { c.cfg = cfg }
}

// WithLogger sets the logger entry.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Context) { c.log = l }
}

// WithLookupHook installs an existing-only lookup on a store built by
// Initialize. Without it lookups go through the get hook.
func WithLookupHook(fn sockstate.LookupFunc) Option {
	return func(c *Context) {
		if h, ok := c.store.(*sockstate.Hooks); ok {
			h.LookupFn = fn
		}
	}
}

// WithControl shares a control bundle for metrics and probes.
func WithControl(ctl *control.Control) Option {
	return func(c *Context) { c.ctl = ctl }
}
