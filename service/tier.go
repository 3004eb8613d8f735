package service

import (
	"context"
	"errors"
	"fmt"

	"skdev/storage-api/aws"
	"skdev/storage-api/model"
)

type TierOutcome int

const (
	// TierApplied means the object now sits in the requested tier
	TierApplied TierOutcome = iota

	// TierUnchanged means the object was already there, nothing was issued
	TierUnchanged

	// TierRestoring means a restoration is outstanding. The store finishes
	// it out of band, the caller re-invokes later to make progress
	TierRestoring
)

type TierResult struct {
	Outcome TierOutcome
	Meta    *aws.ObjectMeta
}

// TierManager drives a file between storage tiers. It holds no state between
// calls: every decision is a function of the tier the store reports right
// now, which is also why it never reads the cached snapshot.
type TierManager struct {
	Meta  *MetadataCache
	Store ObjectStore
}

// Change moves the object behind key toward the requested tier. rec may be
// nil for objects that exist in the store but not the database, then the
// snapshot update is skipped.
func (t *TierManager) Change(ctx context.Context, rec *model.File, key, requested string) (*TierResult, error) {
	if requested != model.TierStandard && requested != model.TierGlacier {
		return nil, ErrInvalidTier
	}

	// Tier changes must never act on stale data
	meta, err := t.Store.Head(ctx, key)
	if err != nil {
		if errors.Is(err, aws.ErrObjectMissing) {
			return nil, ErrFileNotFound
		}

		return nil, fmt.Errorf("failed to resolve current tier, %w", err)
	}

	if meta.Tier == requested {
		t.writeBack(rec, meta)
		return &TierResult{Outcome: TierUnchanged, Meta: meta}, nil
	}

	// A restoration already in flight absorbs every request until the store
	// finishes it, no matter which tier was asked for
	if meta.Tier == model.TierRestoring {
		return &TierResult{Outcome: TierRestoring, Meta: meta}, nil
	}

	if requested == model.TierGlacier {
		if err := t.Store.Archive(ctx, key); err != nil {
			return nil, err
		}

		meta.Tier = model.TierGlacier
		t.writeBack(rec, meta)

		return &TierResult{Outcome: TierApplied, Meta: meta}, nil
	}

	// glacier -> standard is two-phase. Once the store reports the restore
	// done the object can be rewritten into the standard class, before that
	// all we can do is ask and tell the caller to come back
	if meta.Restore == aws.RestoreComplete {
		if err := t.Store.FinalizeRestore(ctx, key); err != nil {
			return nil, err
		}

		meta.Tier = model.TierStandard
		meta.Restore = aws.RestoreNone
		t.writeBack(rec, meta)

		return &TierResult{Outcome: TierApplied, Meta: meta}, nil
	}

	if err := t.Store.Restore(ctx, key); err != nil {
		return nil, err
	}

	return &TierResult{Outcome: TierRestoring, Meta: meta}, nil
}

func (t *TierManager) writeBack(rec *model.File, meta *aws.ObjectMeta) {
	if rec != nil {
		t.Meta.WriteBack(rec, meta)
	}
}
