// Package storage implements the content-addressed object store.
package storage

// Provider is the interface for content-addressed blob operations.
// Entries are write-once: there is no update or delete.
type Provider interface {
	// Put stores data and returns its digest. Storing content that is
	// already present is a no-op.
	Put(data []byte) (string, error)
	// Get returns the content stored under digest.
	Get(digest string) ([]byte, error)
	// Has reports whether an entry exists for digest.
	Has(digest string) (bool, error)
	// Digests lists every stored digest in ascending order.
	Digests() ([]string, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
