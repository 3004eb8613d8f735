package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"skdev/storage-api/aws"
	"skdev/storage-api/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ListMode string

const (
	// ModeOffset pages through the database ordering, totals come from a
	// database count
	ModeOffset ListMode = "offset"

	// ModeCursor pages through the store's native listing reconciled
	// against recently confirmed uploads
	ModeCursor ListMode = "cursor"
)

type ListRequest struct {
	Owner    string
	Mode     ListMode
	Page     int
	PerPage  int
	Cursor   string
	UseCache bool
}

type EntryMeta struct {
	Tier        string `json:"tier"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

type FileEntry struct {
	FileName         string    `json:"file_name"`
	SimpleURL        string    `json:"simple_url"`
	Metadata         EntryMeta `json:"metadata"`
	UploadComplete   string    `json:"upload_complete"`
	LastModified     string    `json:"last_modified"`
	ID               string    `json:"id"`
	S3Key            string    `json:"s3_key"`
	ExistsInDB       bool      `json:"exists_in_db"`
	RecentlyUploaded bool      `json:"recently_uploaded,omitempty"`

	// sort keys, not part of the rendered entry
	lastModifiedAt time.Time
}

type Page struct {
	Files      []FileEntry `json:"files"`
	Total      int64       `json:"total"`
	TotalPages int64       `json:"total_pages"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	NextCursor *string     `json:"next_cursor"`
}

// Lister produces ordered, paginated views of an owner's files by merging
// database records with live or cached object-store metadata.
type Lister struct {
	DB             *gorm.DB
	Store          ObjectStore
	Meta           *MetadataCache
	Pages          *ResponseCache
	BucketURL      string
	RecencyWindow  time.Duration
	MaxConcurrency int
}

func (l *Lister) ListPage(ctx context.Context, req ListRequest) (*Page, error) {
	if req.Mode == ModeCursor {
		return l.cursorPage(ctx, req)
	}

	return l.offsetPage(ctx, req)
}

// offsetPage orders complete records newest first, takes the requested slice
// and resolves metadata for exactly those records. Totals come from the
// database count, so a record dropped for having no backing object shrinks
// the page but never the totals. Clients depend on stable page counts, keep
// it that way.
func (l *Lister) offsetPage(ctx context.Context, req ListRequest) (*Page, error) {
	pos := strconv.Itoa(req.Page)

	if req.UseCache {
		if page, ok := l.Pages.Get(req.Owner, string(ModeOffset), pos, req.PerPage); ok {
			return page, nil
		}
	}

	var total int64

	err := l.DB.
		Model(&model.File{}).
		Where("user_id = ? AND upload_status = ?", req.Owner, model.UploadComplete).
		Count(&total).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count files, %w", err)
	}

	var recs []model.File

	err = l.DB.
		Where("user_id = ? AND upload_status = ?", req.Owner, model.UploadComplete).
		Order("last_modified desc, id desc").
		Offset((req.Page - 1) * req.PerPage).
		Limit(req.PerPage).
		Find(&recs).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to load page records, %w", err)
	}

	entries := l.resolveRecords(ctx, recs, req.UseCache)

	page := &Page{
		Files:      entries,
		Total:      total,
		TotalPages: ceilDiv(total, req.PerPage),
		Page:       req.Page,
		PerPage:    req.PerPage,
	}

	if len(entries) > 0 && int64(req.Page) < page.TotalPages {
		last := entries[len(entries)-1]
		c := encodeCursor(last.lastModifiedAt.UnixMilli(), last.S3Key)
		page.NextCursor = &c
	}

	if req.UseCache {
		l.Pages.Set(req.Owner, string(ModeOffset), pos, req.PerPage, page)
	}

	return page, nil
}

// cursorPage sources the file list from the store's native listing. Because
// that listing may lag behind uploads confirmed in the last few minutes, the
// result is reconciled with recent database records before sorting. Pages
// that picked up such records are ineligible for the response cache, their
// completeness depends on a moving window rather than a stable snapshot.
func (l *Lister) cursorPage(ctx context.Context, req ListRequest) (*Page, error) {
	if req.UseCache {
		if page, ok := l.Pages.Get(req.Owner, string(ModeCursor), req.Cursor, req.PerPage); ok {
			return page, nil
		}
	}

	var (
		cursorTS  int64
		cursorKey string
		err       error
	)

	hasCursor := req.Cursor != ""
	if hasCursor {
		cursorTS, cursorKey, err = decodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
	}

	objs, err := l.Store.List(ctx, req.Owner+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list store objects, %w", err)
	}

	var dbTotal int64

	err = l.DB.
		Model(&model.File{}).
		Where("user_id = ? AND upload_status = ?", req.Owner, model.UploadComplete).
		Count(&dbTotal).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count files, %w", err)
	}

	// Neither side sees everything on its own: the store listing lags fresh
	// uploads, the database misses objects written around it. Trust the
	// larger count
	total := max(int64(len(objs)), dbTotal)

	var recs []model.File

	err = l.DB.
		Where("user_id = ?", req.Owner).
		Find(&recs).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records, %w", err)
	}

	byKey := make(map[string]*model.File, len(recs))
	for i := range recs {
		byKey[recs[i].S3Key] = &recs[i]
	}

	items := make([]FileEntry, 0, len(objs))
	listed := make(map[string]bool, len(objs))

	for _, obj := range objs {
		rec := byKey[obj.Key]
		if rec != nil && rec.UploadStatus != model.UploadComplete {
			// A pending record's object never shows up in listings
			continue
		}

		listed[obj.Key] = true
		items = append(items, entryFromListing(obj, rec, l.BucketURL))
	}

	merged := false
	cutoff := time.Now().Add(-l.RecencyWindow).UnixMilli()

	for i := range recs {
		rec := &recs[i]
		if rec.UploadStatus != model.UploadComplete || rec.CreatedAt < cutoff || listed[rec.S3Key] {
			continue
		}

		meta, err := l.Meta.Get(ctx, rec, true)
		if err != nil {
			// The object may still be propagating, fall back to whatever
			// snapshot the record carries
			if !rec.HasSnapshot() {
				zap.L().Warn("Skipping recent upload with no resolvable metadata",
					zap.String("s3Key", rec.S3Key), zap.Error(err))
				continue
			}

			meta = snapshotMeta(rec)
		}

		e := entryFromMeta(rec, meta, l.BucketURL)
		e.RecentlyUploaded = true

		items = append(items, e)
		merged = true
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].lastModifiedAt.Equal(items[j].lastModifiedAt) {
			return items[i].lastModifiedAt.After(items[j].lastModifiedAt)
		}

		return items[i].S3Key > items[j].S3Key
	})

	if hasCursor {
		after := items[:0]

		for _, e := range items {
			ts := e.lastModifiedAt.UnixMilli()
			if ts < cursorTS || (ts == cursorTS && e.S3Key < cursorKey) {
				after = append(after, e)
			}
		}

		items = after
	}

	pageItems := items
	if len(pageItems) > req.PerPage {
		pageItems = pageItems[:req.PerPage]
	}

	page := &Page{
		Files:      pageItems,
		Total:      total,
		TotalPages: ceilDiv(total, req.PerPage),
		Page:       req.Page,
		PerPage:    req.PerPage,
	}

	if len(items) > req.PerPage {
		last := pageItems[len(pageItems)-1]
		c := encodeCursor(last.lastModifiedAt.UnixMilli(), last.S3Key)
		page.NextCursor = &c
	}

	if req.UseCache && !merged {
		l.Pages.Set(req.Owner, string(ModeCursor), req.Cursor, req.PerPage, page)
	}

	return page, nil
}

// resolveRecords fans out metadata resolution for one page of records with
// bounded concurrency. Results are re-associated with their record by index,
// never by completion order, so the final order always matches the sort key.
// Records whose object is gone are dropped, a transient failure gets one
// retry before the record is dropped too.
func (l *Lister) resolveRecords(ctx context.Context, recs []model.File, useCache bool) []FileEntry {
	out := make([]*FileEntry, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.MaxConcurrency)

	for i := range recs {
		g.Go(func() error {
			rec := &recs[i]

			meta, err := l.Meta.Get(ctx, rec, useCache)
			if errors.Is(err, ErrMetadataFetch) {
				meta, err = l.Meta.Get(ctx, rec, useCache)
			}
			if err != nil {
				if errors.Is(err, aws.ErrObjectMissing) {
					zap.L().Warn("Dropping record with no backing object",
						zap.String("s3Key", rec.S3Key))
				} else {
					zap.L().Warn("Dropping record after failed metadata fetch",
						zap.String("s3Key", rec.S3Key), zap.Error(err))
				}

				return nil
			}

			e := entryFromMeta(rec, meta, l.BucketURL)
			out[i] = &e
			return nil
		})
	}

	g.Wait()

	entries := make([]FileEntry, 0, len(recs))
	for _, e := range out {
		if e != nil {
			entries = append(entries, *e)
		}
	}

	return entries
}

func entryFromMeta(rec *model.File, meta *aws.ObjectMeta, bucketURL string) FileEntry {
	return FileEntry{
		FileName:       rec.FileName,
		SimpleURL:      bucketURL + rec.S3Key,
		Metadata:       EntryMeta{Tier: meta.Tier, Size: meta.Size, ContentType: meta.ContentType},
		UploadComplete: model.UploadComplete,
		LastModified:   meta.LastModified.UTC().Format(time.RFC3339),
		ID:             rec.LegacyID(),
		S3Key:          rec.S3Key,
		ExistsInDB:     true,
		lastModifiedAt: meta.LastModified,
	}
}

func entryFromListing(obj aws.ObjectMeta, rec *model.File, bucketURL string) FileEntry {
	e := FileEntry{
		FileName:       obj.Key[strings.LastIndex(obj.Key, "/")+1:],
		SimpleURL:      bucketURL + obj.Key,
		Metadata:       EntryMeta{Tier: obj.Tier, Size: obj.Size},
		UploadComplete: model.UploadComplete,
		LastModified:   obj.LastModified.UTC().Format(time.RFC3339),
		ID:             strings.ReplaceAll(obj.Key, "/", "-"),
		S3Key:          obj.Key,
		ExistsInDB:     rec != nil,
		lastModifiedAt: obj.LastModified,
	}

	// The listing API doesn't report content types, a record snapshot can
	// fill the gap
	if rec != nil && rec.CachedContentType != "" {
		e.Metadata.ContentType = rec.CachedContentType
	}

	return e
}

func ceilDiv(total int64, perPage int) int64 {
	if total <= 0 {
		return 0
	}

	pp := int64(perPage)
	return (total + pp - 1) / pp
}
