// Package cache provides a generic, capacity-bounded, time-expiring key/value
// store. Entries expire a fixed TTL after their last write and are evicted in
// least-recently-accessed order when the cache is full. All operations are
// serialized by a single mutex per instance.
package cache
