// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration control, hot reload and debug introspection
// for the completion-port adaptation layer.
//
// Provides concurrent-safe primitives:
//   - Counters and gauges updated by the socket layer
//   - Snapshot config reads, JSON file loading and fsnotify-driven reload
//   - Reload hooks for components that re-read configuration
//   - Debug probe registration and state export
package control
