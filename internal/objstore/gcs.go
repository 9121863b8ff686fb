package objstore

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/go-faster/errors"
)

const publicURLBase = "https://storage.googleapis.com/"

// GCS stores objects in a Google Cloud Storage bucket (the bucket behind
// Firebase Storage) and serves them through the public URL convention.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
}

var _ Storage = (*GCS)(nil)

// NewGCS wraps the named bucket handle.
func NewGCS(bucket *storage.BucketHandle, bucketName string) *GCS {
	return &GCS{bucket: bucket, name: bucketName}
}

func (g *GCS) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	w := g.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "upload object %q", path)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "finalize object %q", path)
	}
	return publicURLBase + g.name + "/" + path, nil
}

func (g *GCS) Delete(ctx context.Context, path string) error {
	err := g.bucket.Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(err, "delete object %q", path)
	}
	return nil
}

func (g *GCS) PathFromURL(url string) string {
	prefix := publicURLBase + g.name + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
