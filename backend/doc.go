// Package backend defines the primitive command set that Redis-backed
// collections are built on. A Backend is a live handle to one store endpoint;
// it is created once, shared by every collection bound to it, and never owned
// by a collection.
//
// Implementations
//
//	memorybackend : in-process reference used for tests / single-process programs
//	redisbackend  : go-redis backed implementation talking to a real server
//
// Both implementations are verified by the shared conformance suite in
// backendtest.
//
// # Absent values
//
// Commands whose Redis reply may be nil (LPOP, RPOP, SPOP, LINDEX) return
// ErrNil instead of an empty string so that callers can distinguish an
// empty string member from a missing one.
package backend
