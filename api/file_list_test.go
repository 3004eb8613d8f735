package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"skdev/storage-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listResponse struct {
	Files []struct {
		FileName   string `json:"file_name"`
		S3Key      string `json:"s3_key"`
		ExistsInDB bool   `json:"exists_in_db"`
		Metadata   struct {
			Tier string `json:"tier"`
			Size int64  `json:"size"`
		} `json:"metadata"`
	} `json:"files"`
	Total      int64   `json:"total"`
	TotalPages int64   `json:"total_pages"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	NextCursor *string `json:"next_cursor"`
}

func TestFileListRejectsBadPagination(t *testing.T) {
	a, _ := newTestAPI(t)

	tests := []struct {
		name  string
		query string
	}{
		{"zero page", "?page=0"},
		{"negative page", "?page=-1"},
		{"non numeric page", "?page=abc"},
		{"zero per_page", "?per_page=0"},
		{"per_page over max", "?per_page=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(a, http.MethodGet, "/api/files"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid pagination parameters")
		})
	}
}

func TestFileListOffsetMode(t *testing.T) {
	a, store := newTestAPI(t)

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("alice/f-%d.bin", i)
		mod := base.Add(time.Duration(i) * time.Minute)

		seedFile(t, a.DB, &model.File{
			UserID:       "alice",
			S3Key:        key,
			FileName:     fmt.Sprintf("f-%d.bin", i),
			CreatedAt:    mod.UnixMilli(),
			LastModified: mod.UnixMilli(),
		})
		store.put(key, model.TierStandard, 100, mod)
	}

	w := doRequest(a, http.MethodGet, "/api/files?page=1&per_page=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, int64(2), resp.TotalPages)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PerPage)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "alice/f-2.bin", resp.Files[0].S3Key)
	assert.Equal(t, model.TierStandard, resp.Files[0].Metadata.Tier)
	assert.True(t, resp.Files[0].ExistsInDB)
	assert.NotNil(t, resp.NextCursor)
}

func TestFileListCursorMode(t *testing.T) {
	a, store := newTestAPI(t)

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("alice/f-%d.bin", i)
		mod := base.Add(time.Duration(i) * time.Minute)

		seedFile(t, a.DB, &model.File{
			UserID:       "alice",
			S3Key:        key,
			FileName:     fmt.Sprintf("f-%d.bin", i),
			CreatedAt:    mod.UnixMilli(),
			LastModified: mod.UnixMilli(),
		})
		store.put(key, model.TierStandard, 100, mod)
	}

	// Empty cursor value selects cursor mode starting at the newest entry
	w := doRequest(a, http.MethodGet, "/api/files?cursor=&per_page=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Files, 2)
	assert.Equal(t, "alice/f-2.bin", resp.Files[0].S3Key)
	require.NotNil(t, resp.NextCursor)

	w = doRequest(a, http.MethodGet, "/api/files?cursor="+*resp.NextCursor+"&per_page=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var next listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))

	require.Len(t, next.Files, 1)
	assert.Equal(t, "alice/f-0.bin", next.Files[0].S3Key)
	assert.Nil(t, next.NextCursor)
}

func TestFileListRejectsInvalidCursor(t *testing.T) {
	a, _ := newTestAPI(t)

	w := doRequest(a, http.MethodGet, "/api/files?cursor=not-a-cursor", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid cursor provided")
}
