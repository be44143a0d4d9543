// Package bridge runs the provider's blocking search calls on dedicated
// worker goroutines, capped by a counting permit pool, and hands each outcome
// back to the caller over a buffered channel.
//
// A submission whose caller gives up before a permit is granted never starts
// a provider call. Once started, a worker always runs to completion; if
// nobody is waiting its result is dropped.
package bridge
