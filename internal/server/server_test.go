package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/logger"
	"ragchat/internal/service"
	"ragchat/internal/store/memory"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}

func (stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "stub reply", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memory.New()
	pipeline := service.NewPipeline(service.Config{
		Embedder:      stubProvider{},
		Generator:     stubProvider{},
		Documents:     st,
		Conversations: st,
	})
	h := NewHandler(pipeline, st, logger.NewNop())
	return NewRouter(h, logger.NewNop()), st
}

func TestRootLiveness(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Running")
}

func TestDBTest(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/db-test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestChatMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, body := range []string{
		`{}`,
		`{"session_id":"s1"}`,
		`{"message":"hello"}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		var envelope ErrorEnvelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "validation_error", envelope.Error.Code)
	}
}

func TestChatReturnsReply(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"session_id":"s1","message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stub reply", resp.Reply)
}

func uploadRequest(t *testing.T, session, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if session != "" {
		require.NoError(t, mw.WriteField("session_id", session))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadIngestsFile(t *testing.T) {
	router, st := newTestRouter(t)
	text := strings.Repeat("alpha ", 300)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "s1", "doc.txt", text))

	require.Equal(t, http.StatusOK, w.Code)
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Chunks)
	assert.Equal(t, 2, resp.Embedded)

	stored, ok, err := st.LatestDocument(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, text, stored)
}

func TestUploadMissingParts(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "", "doc.txt", "content"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "s1", "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
