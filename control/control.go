// Package control
// Author: momentics <momentics@gmail.com>
//
// Control aggregates config, metrics and debug probes behind one handle.

package control

// Control bundles the runtime control primitives shared by components.
type Control struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Debug   *DebugProbes
}

// New creates a Control with empty stores and the platform probes.
func New() *Control {
	return &Control{
		Config:  NewConfigStore(),
		Metrics: NewMetricsRegistry(),
		Debug:   NewDebugProbes(),
	}
}

// Stats merges metrics with probe output, probes prefixed by "debug.".
func (c *Control) Stats() map[string]any {
	combined := c.Metrics.GetSnapshot()
	for k, v := range c.Debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// OnReload registers fn for config updates, including file reloads.
func (c *Control) OnReload(fn func()) {
	c.Config.OnReload(fn)
}
