// Package ring provides the C1 ring buffer described in the RMR design: a
// bounded FIFO of opaque pointers with a pollable, readable signal backing
// it, so the receive thread's multiplexer and application callers can share
// the same event loop.
package ring
