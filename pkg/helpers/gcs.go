package helpers

import (
	"context"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// CoverCacheControl is set on uploaded objects; cover names are never reused.
const CoverCacheControl = "public, max-age=31536000, immutable"

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// WriteObject streams r into bucket/objectPath. Existing objects are never overwritten.
func WriteObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) error {
	w := client.Bucket(bucket).Object(objectPath).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = CoverCacheControl
	w.ChunkSize = 0 // covers are small, upload in a single request
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// DeleteObject removes bucket/objectPath.
func DeleteObject(ctx context.Context, client *storage.Client, bucket, objectPath string) error {
	return client.Bucket(bucket).Object(objectPath).Delete(ctx)
}

// PublicURL is the public HTTPS address of an object in a publicly readable bucket.
func PublicURL(bucket, objectPath string) string {
	segs := strings.Split(objectPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(segs, "/")
}
