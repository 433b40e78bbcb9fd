package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfeller/photocat/internal/db"
	"github.com/mfeller/photocat/internal/identity"
	"github.com/mfeller/photocat/internal/service"
	"github.com/mfeller/photocat/internal/store"
	"github.com/mfeller/photocat/internal/web"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// memBlobStore is a simple in-memory blobstore.Store.
type memBlobStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{data: make(map[string][]byte), mimes: make(map[string]string)}
}

func (m *memBlobStore) Put(_ context.Context, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("blob_%d.jpg", m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *memBlobStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", fmt.Errorf("key not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[key], nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memBlobStore) URL(key string) string { return "/blobs/" + key }

func newTestServer(t *testing.T) (*httptest.Server, *identity.Gateway) {
	t.Helper()

	database, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	projects := store.NewProjectStore(database)
	photos := store.NewPhotoStore(database)
	blobs := newMemBlobStore()
	gateway := identity.NewGateway([]byte("integration-test-secret"))

	projectSvc := service.NewProjectService(projects, photos, blobs, slog.Default())
	photoSvc := service.NewPhotoService(projects, photos, blobs, nil, slog.Default())

	srv := httptest.NewServer(web.NewServer(projectSvc, photoSvc, gateway, blobs, slog.Default()))
	t.Cleanup(srv.Close)
	return srv, gateway
}

// multipartBody builds a multipart form with the given fields and an optional
// file under fileField.
func multipartBody(t *testing.T, fields map[string]string, fileField string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestProjectLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create.
	body, contentType := multipartBody(t, map[string]string{
		"name":        "Trip",
		"description": "summer 2025",
	}, "", nil)
	resp, err := http.Post(srv.URL+"/projects", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		CoverURL    *string `json:"cover_photo_url"`
		PhotoCount  int     `json:"photo_count"`
	}
	decodeJSON(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Trip", created.Name)
	assert.Nil(t, created.CoverURL)

	// Get.
	resp, err = http.Get(srv.URL + "/projects/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Patch the name only.
	body, contentType = multipartBody(t, map[string]string{"name": "Road Trip"}, "", nil)
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/projects/"+created.ID, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	decodeJSON(t, resp, &updated)
	assert.Equal(t, "Road Trip", updated.Name)
	assert.Equal(t, "summer 2025", updated.Description)

	// Delete.
	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/projects/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/projects/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProject_BlankNameLeavesCatalogUnchanged(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"name": "  ", "description": "desc"}, "", nil)
	resp, err := http.Post(srv.URL+"/projects", contentType, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/projects")
	require.NoError(t, err)
	var projects []json.RawMessage
	decodeJSON(t, resp, &projects)
	assert.Empty(t, projects)
}

func TestPhotoLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create the owning project.
	body, contentType := multipartBody(t, map[string]string{"name": "Trip"}, "", nil)
	resp, err := http.Post(srv.URL+"/projects", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var project struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &project)

	// Upload a photo with metadata.
	body, contentType = multipartBody(t, map[string]string{
		"rating":       "5",
		"tags":         "sunset",
		"observations": "from the pier",
		"latitude":     "43.65",
		"longitude":    "-79.38",
		"address":      "Toronto",
	}, "image", minimalJPEG)
	resp, err = http.Post(srv.URL+"/projects/"+project.ID+"/photos", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var photo struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Rating   int    `json:"rating"`
		Tags     []string
		Location *struct {
			Address string `json:"address"`
		} `json:"location"`
	}
	decodeJSON(t, resp, &photo)
	assert.Equal(t, 5, photo.Rating)
	assert.Equal(t, []string{"sunset"}, photo.Tags)
	require.NotNil(t, photo.Location)
	assert.Equal(t, "Toronto", photo.Location.Address)

	// The stored blob is served back.
	resp, err = http.Get(srv.URL + photo.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, minimalJPEG, served)

	// Filtered list returns exactly this photo.
	resp, err = http.Get(srv.URL + "/photos?project_id=" + project.ID)
	require.NoError(t, err)
	var photos []struct {
		ID     string `json:"id"`
		Rating int    `json:"rating"`
	}
	decodeJSON(t, resp, &photos)
	require.Len(t, photos, 1)
	assert.Equal(t, photo.ID, photos[0].ID)

	// Patch the rating only.
	patch := bytes.NewBufferString(`{"rating": 3}`)
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/photos/"+photo.ID, patch)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var patched struct {
		Rating       int      `json:"rating"`
		Observations string   `json:"observations"`
		Tags         []string `json:"tags"`
	}
	decodeJSON(t, resp, &patched)
	assert.Equal(t, 3, patched.Rating)
	assert.Equal(t, "from the pier", patched.Observations)
	assert.Equal(t, []string{"sunset"}, patched.Tags)

	// Delete, then delete again.
	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/photos/"+photo.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/photos/"+photo.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/photos?project_id=" + project.ID)
	require.NoError(t, err)
	var remaining []json.RawMessage
	decodeJSON(t, resp, &remaining)
	assert.Empty(t, remaining)
}

func TestUploadPhoto_RejectsNonImage(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"name": "Trip"}, "", nil)
	resp, err := http.Post(srv.URL+"/projects", contentType, body)
	require.NoError(t, err)
	var project struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &project)

	body, contentType = multipartBody(t, nil, "image", []byte("%PDF-1.4 not an image"))
	resp, err = http.Post(srv.URL+"/projects/"+project.ID+"/photos", contentType, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthFlow(t *testing.T) {
	srv, gateway := newTestServer(t)

	// Anonymous.
	resp, err := http.Get(srv.URL + "/auth/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Signed in.
	token, err := gateway.IssueToken(identity.User{ID: "u1", Email: "ada@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]string
	decodeJSON(t, resp, &me)
	assert.Equal(t, "ada@example.com", me["email"])

	// Sign out, then the token is no longer accepted.
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/auth/signout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSuggestTags_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"name": "Trip"}, "", nil)
	resp, err := http.Post(srv.URL+"/projects", contentType, body)
	require.NoError(t, err)
	var project struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &project)

	body, contentType = multipartBody(t, nil, "image", minimalJPEG)
	resp, err = http.Post(srv.URL+"/projects/"+project.ID+"/photos", contentType, body)
	require.NoError(t, err)
	var photo struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &photo)

	resp, err = http.Post(srv.URL+"/photos/"+photo.ID+"/tags/suggestions", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
