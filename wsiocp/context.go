// Package wsiocp
// Author: momentics <momentics@gmail.com>
//
// Context: the process-wide state of the layer (completion port, state store,
// cached extension functions, in-flight request arena) made explicit.

package wsiocp

import (
	"github.com/momentics/hioload-iocp/api"
	"github.com/momentics/hioload-iocp/control"
	"github.com/momentics/hioload-iocp/internal/log"
	"github.com/momentics/hioload-iocp/internal/winsock"
	"github.com/momentics/hioload-iocp/pool"
	"github.com/momentics/hioload-iocp/sockstate"
	"github.com/sirupsen/logrus"
)

// Metric keys maintained in the control registry.
const (
	MetricAttached        = "wsiocp.attached"
	MetricDetached        = "wsiocp.detached"
	MetricDeleted         = "wsiocp.records_deleted"
	MetricDeferred        = "wsiocp.deletions_deferred"
	MetricAcceptsQueued   = "wsiocp.accepts_queued"
	MetricAcceptsConsumed = "wsiocp.accepts_consumed"
	MetricReadsArmed      = "wsiocp.reads_armed"
	MetricSendsSync       = "wsiocp.sends_sync"
	MetricSendsIssued     = "wsiocp.sends_issued"
	MetricSendsCompleted  = "wsiocp.sends_completed"
	MetricStray           = "wsiocp.stray_completions"
)

// readRequest and sendRequest remember the record an operation was issued
// against; a completion never touches a record created after it.
type readRequest struct {
	fd api.Fd
	st *sockstate.SocketState
}

type acceptRequest struct {
	pa *sockstate.PendingAccept
	st *sockstate.SocketState // listener
}

type sendRequest struct {
	ps *sockstate.PendingSend
	st *sockstate.SocketState
}

// Context carries everything the layer's operations share. It is created
// once, read-only afterwards except for the in-flight arena, and used from
// one goroutine at a time.
type Context struct {
	port  api.Handle
	store sockstate.Store
	sys   Sys
	cfg   Config
	log   *logrus.Entry
	ctl   *control.Control

	// resolved once on the first Listen
	acceptEx  api.AcceptExFunc
	sockaddrs api.SockaddrsFunc

	addrBufs *pool.FixedBytes

	// inflight keeps every issued request reachable until its completion
	// is dequeued; the key is the request's completion token.
	inflight map[*api.Overlapped]any
}

// New creates a Context bound to an existing completion port and store.
// The port stays owned by the caller.
func New(port api.Handle, store sockstate.Store, opts ...Option) *Context {
	c := &Context{
		port:     port,
		store:    store,
		cfg:      DefaultConfig(),
		inflight: make(map[*api.Overlapped]any),
	}
	for _, o := range opts {
		o(c)
	}
	c.cfg.normalize()
	if c.sys == nil {
		c.sys = winsock.New()
	}
	if c.log == nil {
		c.log = log.NewLogger("wsiocp")
	}
	if c.ctl == nil {
		c.ctl = control.New()
	}
	c.addrBufs = pool.NewFixedBytes(2*int(c.cfg.AddressSize) + c.cfg.AcceptSlack)
	return c
}

// Initialize builds a Context from an opaque store handle and its two hook
// functions, the shape an external socket table exposes.
func Initialize(storeHandle any, port api.Handle, get sockstate.GetFunc, del sockstate.DeleteFunc, opts ...Option) *Context {
	return New(port, sockstate.NewHooks(storeHandle, get, del), opts...)
}

// Shutdown detaches the Context from its store. The completion port is not
// closed. Operations afterwards report invalid state.
func (c *Context) Shutdown() {
	c.store = nil
	c.log.Debug("shutdown")
}

// Port returns the completion port handle.
func (c *Context) Port() api.Handle { return c.port }

// current reports whether st is still the live record for its descriptor.
// Released records are never looked up again, so a get-or-create store is
// not asked to recreate them.
func (c *Context) current(st *sockstate.SocketState) bool {
	return !st.Released() && c.lookup(st.Fd) == st
}

// Config returns the effective configuration.
func (c *Context) Config() Config { return c.cfg }

// Control returns the metrics and probe bundle.
func (c *Context) Control() *control.Control { return c.ctl }

// Inflight returns the number of issued, not yet completed requests.
func (c *Context) Inflight() int { return len(c.inflight) }

// State returns the existing record for fd, nil if none. The record must not
// be retained past the current call.
func (c *Context) State(fd api.Fd) *sockstate.SocketState { return c.lookup(fd) }

// RegisterProbes exposes in-flight counts on dp.
func (c *Context) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("wsiocp.inflight", func() any { return c.Inflight() })
	dp.RegisterProbe("wsiocp.config", func() any { return c.cfg })
}

func (c *Context) get(fd api.Fd) *sockstate.SocketState {
	if c.store == nil {
		return nil
	}
	return c.store.Get(fd)
}

func (c *Context) lookup(fd api.Fd) *sockstate.SocketState {
	if c.store == nil {
		return nil
	}
	return c.store.Lookup(fd)
}

func (c *Context) track(ov *api.Overlapped, req any) {
	c.inflight[ov] = req
}

func (c *Context) untrack(ov *api.Overlapped) {
	delete(c.inflight, ov)
}

// release deletes st when nothing asynchronous references it any more.
func (c *Context) release(st *sockstate.SocketState) bool {
	if c.store == nil || !st.Deletable() {
		return false
	}
	c.store.Delete(st)
	st.MarkReleased()
	c.ctl.Metrics.Add(MetricDeleted, 1)
	c.log.WithField("fd", st.Fd).Debug("socket state deleted")
	return true
}

func (c *Context) count(key string) {
	c.ctl.Metrics.Add(key, 1)
}
