// Package mediastore provides access to private media in an object store.
package mediastore

import (
	"context"
	"io"
)

// Object is a streamed object, possibly a partial range.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	// ContentRange is non-empty for partial responses ("bytes 100-199/1234").
	ContentRange string
}

// Store is the object-store collaborator for media handlers.
type Store interface {
	// Get streams an object. rangeSpec is an HTTP Range header value ("bytes=100-199")
	// or empty for the whole object. Unknown keys map to errs.ErrNotFound.
	Get(ctx context.Context, key, rangeSpec string) (*Object, error)
	// Put stores an object under key.
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}
