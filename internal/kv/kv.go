// Package kv is the shared ephemeral store used to coordinate the HTTP
// ticket step and the long-lived negotiation connection. It is a plain
// get/set/delete surface with two interchangeable backends: redis for
// multi-process deployments, an in-process map for single-process ones.
//
// The store is not transactional. Compound read-modify-write sequences
// (the demand counters) are approximate under concurrency; only single-key
// existence checks followed immediately by deletion (session-token
// consumption, custom-key handoff) carry correctness weight.
package kv

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetTTL stores a value that expires after ttl.
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes a key, reporting whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
}
