// Package memorybackend provides an in-memory backend.Backend implementation
// suitable for tests, development, and single-process programs. All state is
// ephemeral and discarded on process exit. List and set commands follow Redis
// semantics closely enough that the collections algorithms behave the same
// against this package as against a server.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Atomicity         : each command runs under a single mutex
//	SSCAN ordering    : sorted, cursor is a plain offset
//
// Example:
//
//	b := memorybackend.New()
//	reg := registry.New()
//	_ = reg.Register(b, "default", true)
//
// Calls exposes per-command counters so tests can assert how many round trips
// an operation performed.
package memorybackend
