// Package wsiocp
// Author: momentics <momentics@gmail.com>
//
// Readiness emulation over an I/O completion port.
//
// A generic event loop expects POSIX semantics: interest in readable and
// writable conditions plus ordinary send/recv calls. The completion port only
// reports one-shot completions of operations that were explicitly issued.
// This package bridges the two:
//
//   - Attach/Detach associate a socket with the port and tear the association
//     down without ever freeing a record an in-flight completion still needs.
//   - Listen/QueueAccept/AcceptCompleted keep exactly one overlapped accept in
//     flight per listening socket and queue completed connections FIFO.
//   - ArmReadReadiness issues a zero-length overlapped read whose completion
//     is a one-shot "readable" signal. It must be re-armed after every drain.
//   - Send writes synchronously for sockets outside the port, or issues an
//     overlapped write whose result arrives through a callback.
//
// A Context is driven by one goroutine at a time, normally the event loop that
// dequeues completions and feeds them to HandleCompletion. It performs no
// locking of its own.
package wsiocp
