package blob

import (
	"context"
)

type Object struct {
	Key  string
	Size int64
}

// Provider stores the raw payloads of binary documents, keyed by document ID.
// The default deployment keeps them on the local disk; an S3-compatible store
// can be configured instead.
type Provider interface {
	PutObject(ctx context.Context, key string, data []byte) error

	GetObject(ctx context.Context, key string) ([]byte, error)

	DeleteObject(ctx context.Context, key string) error

	ListObjects(ctx context.Context, prefix string) ([]Object, error)
}
