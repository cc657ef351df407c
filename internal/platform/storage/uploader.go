package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultMaxObjectSize = 10 << 20 // 10 MiB
	defaultURLPrefix     = "https://storage.googleapis.com"
)

var (
	errBucketRequired      = errors.New("storage: bucket name is required")
	errObjectRequired      = errors.New("storage: object name is required")
	errReaderRequired      = errors.New("storage: content reader is required")
	errContentTypeRequired = errors.New("storage: content type is required")
	// ErrContentTypeDenied is returned when the content type is outside the allow list.
	ErrContentTypeDenied = errors.New("storage: content type not allowed")
	// ErrObjectTooLarge is returned when the uploaded content exceeds the size limit.
	ErrObjectTooLarge = errors.New("storage: object exceeds maximum size")
)

// ObjectWriterFactory opens a write stream for the named object. The factory
// abstracts the Cloud Storage client so tests can run without a backend.
type ObjectWriterFactory func(ctx context.Context, object, contentType string) (io.WriteCloser, error)

// Uploader streams quote images into a Cloud Storage bucket and returns their public URLs.
type Uploader struct {
	bucket       string
	urlPrefix    string
	maxSize      int64
	allowedTypes []string
	newWriter    ObjectWriterFactory
}

// UploaderOption customises Uploader construction.
type UploaderOption func(*Uploader)

// WithPublicURLPrefix overrides the base URL used to build public object URLs.
func WithPublicURLPrefix(prefix string) UploaderOption {
	return func(u *Uploader) {
		prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
		if prefix != "" {
			u.urlPrefix = prefix
		}
	}
}

// WithMaxObjectSize caps the accepted upload size in bytes.
func WithMaxObjectSize(size int64) UploaderOption {
	return func(u *Uploader) {
		if size > 0 {
			u.maxSize = size
		}
	}
}

// WithAllowedContentTypes restricts uploads to the given content types.
// Entries may use a trailing wildcard such as "image/*".
func WithAllowedContentTypes(types ...string) UploaderOption {
	return func(u *Uploader) {
		if len(types) > 0 {
			u.allowedTypes = types
		}
	}
}

// WithObjectWriterFactory injects a custom writer factory, primarily for tests.
func WithObjectWriterFactory(factory ObjectWriterFactory) UploaderOption {
	return func(u *Uploader) {
		if factory != nil {
			u.newWriter = factory
		}
	}
}

// NewUploader constructs an Uploader bound to the given bucket.
func NewUploader(client *storage.Client, bucket string, opts ...UploaderOption) (*Uploader, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errBucketRequired
	}

	uploader := &Uploader{
		bucket:       bucket,
		urlPrefix:    defaultURLPrefix,
		maxSize:      defaultMaxObjectSize,
		allowedTypes: []string{"image/*"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(uploader)
		}
	}

	if uploader.newWriter == nil {
		if client == nil {
			return nil, errors.New("storage: client is required")
		}
		handle := client.Bucket(bucket)
		uploader.newWriter = func(ctx context.Context, object, contentType string) (io.WriteCloser, error) {
			writer := handle.Object(object).NewWriter(ctx)
			writer.ContentType = contentType
			return writer, nil
		}
	}

	return uploader, nil
}

// Upload streams the content into the bucket and returns the public URL of the object.
func (u *Uploader) Upload(ctx context.Context, object, contentType string, content io.Reader) (string, error) {
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return "", errObjectRequired
	}
	if content == nil {
		return "", errReaderRequired
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return "", errContentTypeRequired
	}
	if !contentTypeAllowed(contentType, u.allowedTypes) {
		return "", ErrContentTypeDenied
	}

	writer, err := u.newWriter(ctx, object, contentType)
	if err != nil {
		return "", fmt.Errorf("storage: open writer for %s: %w", object, err)
	}

	limit := u.maxSize
	if limit <= 0 {
		limit = defaultMaxObjectSize
	}
	written, err := io.Copy(writer, io.LimitReader(content, limit+1))
	if err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: write object %s: %w", object, err)
	}
	if written > limit {
		_ = writer.Close()
		return "", ErrObjectTooLarge
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: finalise object %s: %w", object, err)
	}

	return u.PublicURL(object), nil
}

// PublicURL builds the public URL for an object in the configured bucket.
func (u *Uploader) PublicURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", u.urlPrefix, u.bucket, strings.TrimLeft(object, "/"))
}

// QuoteImageObject builds a collision-free object name for a quote image upload.
func QuoteImageObject(quoteID, imageID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("quotes/%s/%s%s", strings.TrimSpace(quoteID), strings.TrimSpace(imageID), ext)
}

// ObjectTimestampPrefix is a helper for callers that want date-partitioned object layouts.
func ObjectTimestampPrefix(now time.Time) string {
	return now.UTC().Format("2006/01/02")
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			return true
		}
		if strings.HasSuffix(candidate, "/*") {
			if strings.HasPrefix(normalized, strings.TrimSuffix(candidate, "*")) {
				return true
			}
			continue
		}
		if normalized == candidate {
			return true
		}
	}
	return false
}
