// Package model defines database models
package model

import (
	"strings"
	"time"
)

// Storage tiers as reported to clients. Restoring is a transient state the
// store reports while a glacier object is being made retrievable again.
const (
	TierStandard  = "standard"
	TierGlacier   = "glacier"
	TierRestoring = "restoring"
)

const (
	UploadPending  = "pending"
	UploadComplete = "complete"
)

type File struct {
	ID     uint   `gorm:"primaryKey;autoIncrement;index" json:"id"`
	UserID string `gorm:"index" json:"-"`

	// Objects live under "<owner>/<name>" so different users can keep
	// files with the same name
	S3Key string `gorm:"uniqueIndex" json:"s3_key"`

	// Display name, the part of the key after the owner prefix
	FileName string `json:"file_name"`

	// pending until the upload is confirmed. Only complete records are listable
	UploadStatus string `gorm:"default:pending" json:"upload_status"`

	// Snapshot of the last object-store head call. Valid while
	// now - MetadataCachedAt < cache.metadata_ttl
	CachedTier         string `json:"-"`
	CachedSize         int64  `json:"-"`
	CachedContentType  string `json:"-"`
	CachedLastModified int64  `json:"-"`
	MetadataCachedAt   *int64 `json:"-"` // nil if never cached

	// Unix millisecond timestamps. CreatedAt doubles as the recency signal
	// when reconciling store listings against fresh uploads
	CreatedAt    int64 `gorm:"not null" json:"created_at"`
	LastModified int64 `gorm:"index" json:"last_modified"`
}

// HasSnapshot reports whether the record carries any cached metadata at all.
func (f *File) HasSnapshot() bool {
	return f.MetadataCachedAt != nil
}

// SnapshotFresh reports whether the cached metadata is still inside ttl.
func (f *File) SnapshotFresh(ttl time.Duration) bool {
	if f.MetadataCachedAt == nil {
		return false
	}

	return time.Since(time.UnixMilli(*f.MetadataCachedAt)) < ttl
}

// LegacyID is the composite identifier older clients used for a file,
// the S3 key with slashes swapped for dashes
func (f *File) LegacyID() string {
	return strings.ReplaceAll(f.S3Key, "/", "-")
}
