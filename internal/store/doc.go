// Package store provides the in-memory endpoint status table shared between
// the monitoring loop and the health endpoint.
//
// The table is the only mutable state shared across goroutines: the loop
// writes after every fetch attempt, and the health handler reads on every
// request. All access goes through RWMutex-guarded methods; no lock is ever
// held across a network call.
//
// Users of the riverlevel library should not need to interact with this
// package directly.
package store
