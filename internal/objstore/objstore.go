// Package objstore is the object-storage port: file uploads keyed by a
// logical path, returning public URLs.
package objstore

import (
	"context"
	"io"
)

// Storage accepts file uploads and deletions by logical path.
type Storage interface {
	// Upload stores the content under path and returns its public URL.
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	// Delete removes a previously uploaded object. Deleting an absent
	// object is not an error.
	Delete(ctx context.Context, path string) error
	// PathFromURL maps a public URL produced by Upload back to its
	// logical path, or returns "" when the URL is foreign.
	PathFromURL(url string) string
}
