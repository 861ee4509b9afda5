// Package storage persists the transaction log.
//
// The log lives under a single key of a string key-value store as a JSON
// array. TransactionStore is the typed boundary between that representation
// and core.Transaction; KeyValueStore implementations only move strings.
package storage

import "context"

// KeyValueStore is the durable string-keyed collaborator.
type KeyValueStore interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
}
