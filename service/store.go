package service

import (
	"context"

	"skdev/storage-api/aws"
)

// ObjectStore is the slice of the object store the engine depends on.
// *aws.S3Client satisfies it, tests swap in a fake.
type ObjectStore interface {
	Head(ctx context.Context, key string) (*aws.ObjectMeta, error)
	List(ctx context.Context, prefix string) ([]aws.ObjectMeta, error)
	Archive(ctx context.Context, key string) error
	Restore(ctx context.Context, key string) error
	FinalizeRestore(ctx context.Context, key string) error
}
