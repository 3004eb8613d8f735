package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"skdev/storage-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTierRequiresBody(t *testing.T) {
	a, store := newTestAPI(t)

	store.put("alice/a.bin", model.TierStandard, 1, time.Now())

	w := doRequest(a, http.MethodPut, "/api/files/a.bin/tier", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No tier provided")

	w = doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"cold"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid tier")
}

func TestFileTierMissingObject(t *testing.T) {
	a, _ := newTestAPI(t)

	w := doRequest(a, http.MethodPut, "/api/files/gone.bin/tier", `{"tier":"glacier"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "File not found in S3")
}

func TestFileTierArchiveAndBack(t *testing.T) {
	a, store := newTestAPI(t)

	seedFile(t, a.DB, &model.File{
		UserID:   "alice",
		S3Key:    "alice/a.bin",
		FileName: "a.bin",
	})
	store.put("alice/a.bin", model.TierStandard, 10, time.Now())

	// standard -> glacier applies immediately
	w := doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"glacier"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Tier changed", resp["message"])
	assert.Equal(t, model.TierGlacier, resp["metadata"].(map[string]any)["tier"])

	// Asking again is a no-op
	w = doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"glacier"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tier unchanged")

	// glacier -> standard starts a restore, reported as accepted
	w = doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"standard"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "being restored")

	// A repeat while restoring stays accepted
	w = doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"standard"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestFileTierCaseInsensitive(t *testing.T) {
	a, store := newTestAPI(t)

	store.put("alice/a.bin", model.TierStandard, 1, time.Now())

	w := doRequest(a, http.MethodPut, "/api/files/a.bin/tier", `{"tier":"STANDARD"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tier unchanged")
}

func TestUserUsage(t *testing.T) {
	a, _ := newTestAPI(t)

	cached := time.Now().UnixMilli()
	seedFile(t, a.DB, &model.File{
		UserID:           "alice",
		S3Key:            "alice/a.bin",
		FileName:         "a.bin",
		CachedTier:       model.TierStandard,
		CachedSize:       100,
		MetadataCachedAt: &cached,
	})
	seedFile(t, a.DB, &model.File{
		UserID:           "alice",
		S3Key:            "alice/b.bin",
		FileName:         "b.bin",
		CachedTier:       model.TierGlacier,
		CachedSize:       200,
		MetadataCachedAt: &cached,
	})

	w := doRequest(a, http.MethodGet, "/api/users/usage", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max-age=60", w.Header().Get("Cache-Control"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, float64(2), resp["total_files"])
	assert.Equal(t, float64(300), resp["total_file_size"])
	assert.Equal(t, float64(1), resp["files_in_standard"])
	assert.Equal(t, float64(1), resp["files_in_archive"])
}
