package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"skdev/storage-api/aws"
	"skdev/storage-api/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeStore is an in-memory ObjectStore. Objects are keyed by S3 key, error
// injection and call counting cover the failure paths.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]aws.ObjectMeta

	headErr map[string]error
	// headErrOnce errors are consumed on first use, for retry tests
	headErrOnce map[string]error
	// unlisted objects respond to Head but never show up in List, the way a
	// fresh upload lags the store's listing
	unlisted map[string]bool

	headCalls     map[string]int
	listCalls     int
	archives      []string
	restores      []string
	finalizations []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:     map[string]aws.ObjectMeta{},
		headErr:     map[string]error{},
		headErrOnce: map[string]error{},
		unlisted:    map[string]bool{},
		headCalls:   map[string]int{},
	}
}

func (f *fakeStore) put(key, tier string, size int64, lastModified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[key] = aws.ObjectMeta{
		Key:          key,
		Tier:         tier,
		Size:         size,
		ContentType:  "application/octet-stream",
		LastModified: lastModified,
	}
}

func (f *fakeStore) setRestore(key string, state aws.RestoreState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj := f.objects[key]
	obj.Restore = state
	if state == aws.RestoreInProgress {
		obj.Tier = model.TierRestoring
	}
	f.objects[key] = obj
}

func (f *fakeStore) Head(_ context.Context, key string) (*aws.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.headCalls[key]++

	if err, ok := f.headErrOnce[key]; ok {
		delete(f.headErrOnce, key)
		return nil, err
	}
	if err, ok := f.headErr[key]; ok {
		return nil, err
	}

	obj, ok := f.objects[key]
	if !ok {
		return nil, aws.ErrObjectMissing
	}

	return &obj, nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]aws.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++

	var out []aws.ObjectMeta
	for k, obj := range f.objects {
		if f.unlisted[k] {
			continue
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, obj)
		}
	}

	return out, nil
}

func (f *fakeStore) Archive(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return aws.ErrObjectMissing
	}

	obj.Tier = model.TierGlacier
	f.objects[key] = obj
	f.archives = append(f.archives, key)

	return nil
}

func (f *fakeStore) Restore(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return aws.ErrObjectMissing
	}

	obj.Tier = model.TierRestoring
	obj.Restore = aws.RestoreInProgress
	f.objects[key] = obj
	f.restores = append(f.restores, key)

	return nil
}

func (f *fakeStore) FinalizeRestore(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return aws.ErrObjectMissing
	}

	obj.Tier = model.TierStandard
	obj.Restore = aws.RestoreNone
	f.objects[key] = obj
	f.finalizations = append(f.finalizations, key)

	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.File{}))

	return db
}

func seedFile(t *testing.T, db *gorm.DB, rec *model.File) *model.File {
	t.Helper()

	if rec.UploadStatus == "" {
		rec.UploadStatus = model.UploadComplete
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Add(-time.Hour).UnixMilli()
	}
	if rec.LastModified == 0 {
		rec.LastModified = rec.CreatedAt
	}

	require.NoError(t, db.Create(rec).Error)

	return rec
}
