package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skdev/storage-api/aws"
	"skdev/storage-api/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MetadataCache serves per-record object metadata, preferring the snapshot
// persisted on the record while it is inside TTL. Writes are last-writer-wins,
// entries are re-derivable from the store so staleness is bounded by the TTL
// alone.
type MetadataCache struct {
	DB    *gorm.DB
	Store ObjectStore
	TTL   time.Duration
}

// Get returns metadata for rec. With useCache set and a fresh snapshot no
// store call happens at all. A live fetch writes the result back into the
// record's snapshot columns. Missing objects surface as aws.ErrObjectMissing,
// transient failures as ErrMetadataFetch. No internal retry, that decision
// belongs to the caller.
func (m *MetadataCache) Get(ctx context.Context, rec *model.File, useCache bool) (*aws.ObjectMeta, error) {
	if useCache && rec.SnapshotFresh(m.TTL) {
		return snapshotMeta(rec), nil
	}

	meta, err := m.Store.Head(ctx, rec.S3Key)
	if err != nil {
		if errors.Is(err, aws.ErrObjectMissing) {
			return nil, err
		}

		return nil, fmt.Errorf("%w for %s, %v", ErrMetadataFetch, rec.S3Key, err)
	}

	m.WriteBack(rec, meta)
	return meta, nil
}

// WriteBack persists a fresh store observation into the record's snapshot.
func (m *MetadataCache) WriteBack(rec *model.File, meta *aws.ObjectMeta) {
	if rec.ID == 0 {
		return
	}

	now := time.Now().UnixMilli()

	rec.CachedTier = meta.Tier
	rec.CachedSize = meta.Size
	rec.CachedContentType = meta.ContentType
	rec.CachedLastModified = meta.LastModified.UnixMilli()
	rec.MetadataCachedAt = &now

	err := m.DB.
		Model(&model.File{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"cached_tier":          meta.Tier,
			"cached_size":          meta.Size,
			"cached_content_type":  meta.ContentType,
			"cached_last_modified": meta.LastModified.UnixMilli(),
			"metadata_cached_at":   now,
		}).
		Error
	if err != nil {
		// The snapshot is only a cache, the next reader falls back to a
		// live fetch if this write never landed
		zap.L().Warn("Failed to persist metadata snapshot", zap.String("s3Key", rec.S3Key), zap.Error(err))
	}
}

func snapshotMeta(rec *model.File) *aws.ObjectMeta {
	return &aws.ObjectMeta{
		Key:          rec.S3Key,
		Tier:         rec.CachedTier,
		Size:         rec.CachedSize,
		ContentType:  rec.CachedContentType,
		LastModified: time.UnixMilli(rec.CachedLastModified),
	}
}
