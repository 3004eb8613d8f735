package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memStore is a minimal in-memory ObjectStore for handler tests.
type memStore struct {
	objects map[string]aws.ObjectMeta
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]aws.ObjectMeta{}}
}

func (m *memStore) put(key, tier string, size int64, mod time.Time) {
	m.objects[key] = aws.ObjectMeta{
		Key:          key,
		Tier:         tier,
		Size:         size,
		ContentType:  "application/octet-stream",
		LastModified: mod,
	}
}

func (m *memStore) Head(_ context.Context, key string) (*aws.ObjectMeta, error) {
	obj, ok := m.objects[key]
	if !ok {
		return nil, aws.ErrObjectMissing
	}

	return &obj, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]aws.ObjectMeta, error) {
	var out []aws.ObjectMeta
	for k, obj := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, obj)
		}
	}

	return out, nil
}

func (m *memStore) Archive(_ context.Context, key string) error {
	obj := m.objects[key]
	obj.Tier = model.TierGlacier
	m.objects[key] = obj

	return nil
}

func (m *memStore) Restore(_ context.Context, key string) error {
	obj := m.objects[key]
	obj.Tier = model.TierRestoring
	obj.Restore = aws.RestoreInProgress
	m.objects[key] = obj

	return nil
}

func (m *memStore) FinalizeRestore(_ context.Context, key string) error {
	obj := m.objects[key]
	obj.Tier = model.TierStandard
	obj.Restore = aws.RestoreNone
	m.objects[key] = obj

	return nil
}

// newTestAPI wires the handler set against an in-memory database and store,
// with a stub auth middleware instead of the JWT one.
func newTestAPI(t *testing.T) (*API, *memStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	viper.Set("aws.bucket", "test-bucket")
	viper.Set("listing.default_per_page", 50)
	viper.Set("listing.max_per_page", 1000)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.File{}))

	store := newMemStore()

	a := &API{DB: db, Store: store}
	a.Resolver = &service.Resolver{DB: db}
	a.Meta = &service.MetadataCache{DB: db, Store: store, TTL: time.Hour}
	a.Lister = &service.Lister{
		DB:             db,
		Store:          store,
		Meta:           a.Meta,
		Pages:          service.NewResponseCache(5 * time.Minute),
		BucketURL:      "https://test-bucket.s3.amazonaws.com/",
		RecencyWindow:  5 * time.Minute,
		MaxConcurrency: 4,
	}
	a.Tiers = &service.TierManager{Meta: a.Meta, Store: store}
	a.Usage = &service.Aggregator{DB: db, Meta: a.Meta, MaxConcurrency: 4}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("requestID", "test-request")
		c.Set("userID", "alice")
	})

	files := router.Group("/api/files")
	{
		files.GET("", a.FileList)
		files.GET("/:id", a.FileDetails)
		files.POST("/:id/confirm", a.FileConfirm)
		files.POST("/:id/refresh", a.FileRefresh)
		files.PUT("/:id/tier", a.FileTier)
	}
	router.GET("/api/users/usage", a.UserUsage)

	a.Router = router

	return a, store
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

func doRequest(a *API, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}
