package repo

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when no document exists under the key.
	ErrNotFound = errors.New("not found")
	// ErrVersionMismatch is returned by PutIfVersion when the stored version differs.
	ErrVersionMismatch = errors.New("version mismatch")
)

// VersionField holds the write counter used by PutIfVersion.
const VersionField = "version"

// Unsubscribe stops a subscription and releases its stream. Safe to call more than once.
type Unsubscribe func()

// Store is the document-store contract every backend satisfies.
type Store interface {
	// Put replaces the whole document stored under key, creating it if needed.
	Put(ctx context.Context, collection, key string, fields Fields) error
	Get(ctx context.Context, collection, key string) (Document, error)
	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, collection, key string) error
	// Query returns every document whose fields equal all filter values.
	// An empty filter is a full scan.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// Subscribe delivers the full matching set on every change until the
	// returned Unsubscribe is called or ctx is done. onError is terminal.
	Subscribe(ctx context.Context, collection string, filter Filter, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error)
}

// VersionedPutter is implemented by stores that can make a write conditional
// on the stored VersionField. expected == 0 means the key must not exist.
type VersionedPutter interface {
	PutIfVersion(ctx context.Context, collection, key string, fields Fields, expected int64) error
}
