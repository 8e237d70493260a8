// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor owns the completion port and the event-loop side of
// readiness emulation: it dequeues completion packets in batches, hands them
// to the adaptation layer and reports the readiness that results.
package reactor
