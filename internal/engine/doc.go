// Package engine provides the background task manager. It issues task
// identifiers, drives each task through pending, processing and a terminal
// state in the task cache, runs the search off the request path and
// publishes every status change to subscribers.
package engine
