package aws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"skdev/storage-api/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrObjectMissing marks a key that has no object behind it. Callers treat
// this as a soft omission, not a request failure.
var ErrObjectMissing = errors.New("object missing from store")

type RestoreState int

const (
	RestoreNone RestoreState = iota
	RestoreInProgress
	RestoreComplete
)

// ObjectMeta is the store-side view of a single object.
type ObjectMeta struct {
	Key          string
	Tier         string
	Size         int64
	ContentType  string
	LastModified time.Time
	Restore      RestoreState
}

// NormalizeTier collapses the store's storage classes into the three tiers
// clients see. An empty class means standard
func NormalizeTier(class string, restore *string) string {
	switch strings.ToUpper(class) {
	case "GLACIER", "DEEP_ARCHIVE", "GLACIER_IR":
		if restoreState(restore) == RestoreInProgress {
			return model.TierRestoring
		}

		return model.TierGlacier
	default:
		return model.TierStandard
	}
}

func restoreState(restore *string) RestoreState {
	if restore == nil {
		return RestoreNone
	}

	if strings.Contains(*restore, `ongoing-request="true"`) {
		return RestoreInProgress
	}

	return RestoreComplete
}

// Head fetches live metadata for a single key. Missing objects come back as
// ErrObjectMissing, anything else is a transport failure for the caller to
// retry or drop.
func (s *S3Client) Head(ctx context.Context, key string) (*ObjectMeta, error) {
	resp, err := s.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NotFound", "NoSuchKey":
				return nil, ErrObjectMissing
			}
		}

		return nil, fmt.Errorf("failed to head object %s, %w", key, err)
	}

	meta := &ObjectMeta{
		Key:     key,
		Tier:    NormalizeTier(string(resp.StorageClass), resp.Restore),
		Restore: restoreState(resp.Restore),
	}

	if resp.ContentLength != nil {
		meta.Size = *resp.ContentLength
	}
	if resp.ContentType != nil {
		meta.ContentType = *resp.ContentType
	}
	if resp.LastModified != nil {
		meta.LastModified = *resp.LastModified
	}

	return meta, nil
}

// List walks the store's native listing for a prefix across continuation
// tokens. The listing API doesn't expose content types or restore progress,
// so entries only carry tier, size and modification time.
func (s *S3Client) List(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	var (
		out   []ObjectMeta
		token *string
	)

	for {
		resp, err := s.C.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            s.Bucket,
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s, %w", prefix, err)
		}

		for _, obj := range resp.Contents {
			if obj.Key == nil {
				continue
			}

			meta := ObjectMeta{
				Key:  *obj.Key,
				Tier: NormalizeTier(string(obj.StorageClass), nil),
			}

			if obj.Size != nil {
				meta.Size = *obj.Size
			}
			if obj.LastModified != nil {
				meta.LastModified = *obj.LastModified
			}

			out = append(out, meta)
		}

		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}

		token = resp.NextContinuationToken
	}

	return out, nil
}

// Archive moves an object into the glacier class. A self-copy completes
// synchronously, there's nothing to poll afterwards.
func (s *S3Client) Archive(ctx context.Context, key string) error {
	return s.selfCopy(ctx, key, types.StorageClassGlacier)
}

// Restore asks the store to start bringing a glacier object back. The store
// completes the restore out of band, callers re-invoke to make progress.
func (s *S3Client) Restore(ctx context.Context, key string) error {
	_, err := s.C.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(1),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.TierStandard,
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError

		// A second restore request for the same key is not a failure,
		// the first one is simply still running
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "RestoreAlreadyInProgress" {
			return nil
		}

		return fmt.Errorf("failed to request restore for %s, %w", key, err)
	}

	return nil
}

// FinalizeRestore rewrites a restored object into the standard class so it
// stays retrievable after the temporary restore copy expires.
func (s *S3Client) FinalizeRestore(ctx context.Context, key string) error {
	return s.selfCopy(ctx, key, types.StorageClassStandard)
}

func (s *S3Client) selfCopy(ctx context.Context, key string, class types.StorageClass) error {
	_, err := s.C.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            s.Bucket,
		Key:               aws.String(key),
		CopySource:        aws.String(url.PathEscape(*s.Bucket + "/" + key)),
		StorageClass:      class,
		MetadataDirective: types.MetadataDirectiveCopy,
	})
	if err != nil {
		return fmt.Errorf("failed to change storage class of %s, %w", key, err)
	}

	return nil
}

// StorageClassForTier maps a client tier to the class used on upload.
func StorageClassForTier(tier string) types.StorageClass {
	if tier == model.TierGlacier {
		return types.StorageClassGlacier
	}

	return types.StorageClassStandard
}
