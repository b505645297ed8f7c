package relational

import "context"

// EntryStore is a durable string key/value store. It is the storage contract
// the overview cache is written against.
type EntryStore interface {
	// Get returns the stored value; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put inserts or replaces the value for key.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
