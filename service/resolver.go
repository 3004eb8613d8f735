package service

import (
	"errors"
	"strconv"
	"strings"

	"skdev/storage-api/model"

	"gorm.io/gorm"
)

// Resolver normalizes the identifier forms clients have used over time into
// one canonical S3 key. Every lookup is scoped to the authenticated owner so
// resolution can never match another owner's record.
type Resolver struct {
	DB *gorm.DB
}

// Resolution is the outcome of resolving an identifier. Record is nil when
// only a key could be derived, which is enough for the S3-first paths
// (tier changes, refreshes) but not for reads.
type Resolution struct {
	Record *model.File
	S3Key  string
}

// Resolve tries the identifier eras in order, first match wins:
//
//  1. owner-prefixed key ("<owner>/<name>"), accepted as-is
//  2. database record id
//  3. legacy composite id ("<owner>-<name>")
//  4. bare filename, prefixed with "<owner>/"
func (r *Resolver) Resolve(owner, identifier string) (*Resolution, error) {
	if identifier == "" {
		return nil, ErrFileNotFound
	}

	if strings.HasPrefix(identifier, owner+"/") {
		return &Resolution{
			Record: r.lookupByKey(owner, identifier),
			S3Key:  identifier,
		}, nil
	}

	if id, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		var rec model.File

		err := r.DB.
			Where("user_id = ? AND id = ?", owner, id).
			First(&rec).
			Error
		if err == nil {
			return &Resolution{Record: &rec, S3Key: rec.S3Key}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if rest, ok := strings.CutPrefix(identifier, owner+"-"); ok && rest != "" {
		key := owner + "/" + rest
		if rec := r.lookupByKey(owner, key); rec != nil {
			return &Resolution{Record: rec, S3Key: key}, nil
		}
	}

	key := owner + "/" + identifier
	return &Resolution{
		Record: r.lookupByKey(owner, key),
		S3Key:  key,
	}, nil
}

// ResolveComplete is the read-path variant: the identifier must land on a
// record that finished uploading, otherwise the file doesn't exist as far
// as listings and reads are concerned.
func (r *Resolver) ResolveComplete(owner, identifier string) (*model.File, error) {
	res, err := r.Resolve(owner, identifier)
	if err != nil {
		return nil, err
	}

	if res.Record == nil || res.Record.UploadStatus != model.UploadComplete {
		return nil, ErrFileNotFound
	}

	return res.Record, nil
}

func (r *Resolver) lookupByKey(owner, key string) *model.File {
	var rec model.File

	err := r.DB.
		Where("user_id = ? AND s3_key = ?", owner, key).
		First(&rec).
		Error
	if err != nil {
		return nil
	}

	return &rec
}
