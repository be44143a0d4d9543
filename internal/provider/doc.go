// Package provider defines the contract of the external flight-search
// provider, the schema its raw result chunks are validated against, and a
// simulator that reproduces the provider's latency profile and failure modes.
package provider
