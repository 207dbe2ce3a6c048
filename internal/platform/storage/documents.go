package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultSignedURLExpiry = 15 * time.Minute
	maxSignedURLExpiry     = time.Hour
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
	errNoSigner      = errors.New("storage: signer is required")
	errNoWriter      = errors.New("storage: object writer is required")
	errExpiryTooLong = errors.New("storage: expiry exceeds permitted maximum")
)

// ObjectWriter persists a document payload under the given object path.
type ObjectWriter func(ctx context.Context, objectPath, contentType string, data []byte) error

// DocumentBucket uploads rendered documents and mints short-lived download URLs
// for a single Cloud Storage bucket.
type DocumentBucket struct {
	bucket string
	writer ObjectWriter
	signer Signer
	scheme storage.SigningScheme
	now    func() time.Time
}

// DocumentBucketOption customises DocumentBucket behaviour.
type DocumentBucketOption func(*DocumentBucket)

// WithObjectWriter overrides how object payloads are persisted (primarily for tests).
func WithObjectWriter(writer ObjectWriter) DocumentBucketOption {
	return func(b *DocumentBucket) {
		if writer != nil {
			b.writer = writer
		}
	}
}

// WithSigningScheme overrides the signing scheme (defaults to V4).
func WithSigningScheme(scheme storage.SigningScheme) DocumentBucketOption {
	return func(b *DocumentBucket) {
		if scheme != 0 {
			b.scheme = scheme
		}
	}
}

// WithBucketClock injects a custom clock (useful for tests).
func WithBucketClock(clock func() time.Time) DocumentBucketOption {
	return func(b *DocumentBucket) {
		if clock != nil {
			b.now = clock
		}
	}
}

// NewDocumentBucket constructs a DocumentBucket over the provided client and bucket.
func NewDocumentBucket(client *storage.Client, bucket string, signer Signer, opts ...DocumentBucketOption) (*DocumentBucket, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}

	b := &DocumentBucket{
		bucket: bucket,
		signer: signer,
		scheme: storage.SigningSchemeV4,
		now:    time.Now,
	}
	if client != nil {
		handle := client.Bucket(bucket)
		b.writer = func(ctx context.Context, objectPath, contentType string, data []byte) error {
			w := handle.Object(objectPath).NewWriter(ctx)
			w.ContentType = contentType
			if _, err := w.Write(data); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	if b.writer == nil {
		return nil, errNoWriter
	}
	return b, nil
}

// Upload persists the payload under objectPath with the given content type.
func (b *DocumentBucket) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	objectPath = strings.TrimSpace(objectPath)
	if objectPath == "" {
		return errInvalidObject
	}
	if len(data) == 0 {
		return errors.New("storage: payload is empty")
	}

	if err := b.writer(ctx, objectPath, contentType, data); err != nil {
		return fmt.Errorf("storage: upload %s: %w", objectPath, err)
	}
	return nil
}

// SignedURL mints a GET URL for the object, valid until the returned expiry.
func (b *DocumentBucket) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, time.Time, error) {
	objectPath = strings.TrimSpace(objectPath)
	if objectPath == "" {
		return "", time.Time{}, errInvalidObject
	}
	if ttl <= 0 {
		ttl = defaultSignedURLExpiry
	}
	if ttl > maxSignedURLExpiry {
		return "", time.Time{}, errExpiryTooLong
	}

	expiresAt := b.now().UTC().Add(ttl)
	url, err := storage.SignedURL(b.bucket, objectPath, &storage.SignedURLOptions{
		GoogleAccessID: b.signer.Email(),
		SignBytes: func(payload []byte) ([]byte, error) {
			return b.signer.SignBytes(ctx, payload)
		},
		Method:  "GET",
		Expires: expiresAt,
		Scheme:  b.scheme,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: sign url for %s: %w", objectPath, err)
	}
	return url, expiresAt, nil
}
