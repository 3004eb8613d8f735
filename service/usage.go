package service

import (
	"context"
	"fmt"

	"skdev/storage-api/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type UsageSummary struct {
	TotalFiles      int64 `json:"total_files"`
	TotalFileSize   int64 `json:"total_file_size"`
	FilesInStandard int64 `json:"files_in_standard"`
	FilesInArchive  int64 `json:"files_in_archive"`
}

// Aggregator folds per-owner usage totals out of cached metadata. Usage is a
// coarse, periodically refreshed statistic, so a snapshot of any age beats a
// store call and only records that were never cached are fetched live.
type Aggregator struct {
	DB             *gorm.DB
	Meta           *MetadataCache
	MaxConcurrency int
}

func (a *Aggregator) Aggregate(ctx context.Context, owner string) (*UsageSummary, error) {
	var recs []model.File

	err := a.DB.
		Where("user_id = ? AND upload_status = ?", owner, model.UploadComplete).
		Find(&recs).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records, %w", err)
	}

	type slot struct {
		tier string
		size int64
		ok   bool
	}

	slots := make([]slot, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.MaxConcurrency)

	for i := range recs {
		rec := &recs[i]

		if rec.HasSnapshot() {
			slots[i] = slot{tier: rec.CachedTier, size: rec.CachedSize, ok: true}
			continue
		}

		g.Go(func() error {
			meta, err := a.Meta.Get(ctx, rec, false)
			if err != nil {
				// Still counted as a file, just without bytes or a tier.
				// One bad record must not sink the whole aggregation
				zap.L().Warn("Excluding unresolvable record from size totals",
					zap.String("s3Key", rec.S3Key), zap.Error(err))
				return nil
			}

			slots[i] = slot{tier: meta.Tier, size: meta.Size, ok: true}
			return nil
		})
	}

	g.Wait()

	sum := &UsageSummary{TotalFiles: int64(len(recs))}

	for _, s := range slots {
		if !s.ok {
			continue
		}

		sum.TotalFileSize += s.size

		// Anything that isn't an archival tier counts as standard,
		// restoring objects are still archived until finalized
		switch s.tier {
		case model.TierGlacier, model.TierRestoring:
			sum.FilesInArchive++
		default:
			sum.FilesInStandard++
		}
	}

	return sum, nil
}
