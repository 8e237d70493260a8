//go:build !windows
// +build !windows

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Probes for platforms without a completion port; the layer runs on fakes there.

package control

import "runtime"

// RegisterPlatformProbes sets generic debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS
	})
}
