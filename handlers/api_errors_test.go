package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/mediacatalog/scanner"
)

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIErrorDetail {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Errors, 1)
	return resp.Errors[0]
}

func TestWriteAPIErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusNotFound, "not_found", "Tag not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	detail := decodeAPIError(t, rec)
	assert.Equal(t, "not_found", detail.Code)
	assert.Equal(t, "404", detail.Status)
	assert.Equal(t, "Tag not found", detail.Detail)
}

func TestTagHandlerInvalidIDUsesEnvelope(t *testing.T) {
	th := &TagHandler{}
	r := chi.NewRouter()
	r.Get("/tags/{tag_id}", th.GetTag)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tags/notanumber", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeAPIError(t, rec).Code)
}

func TestScanHandlerRejectsEscapingPath(t *testing.T) {
	sh := &ScanHandler{Scanner: &scanner.Scanner{Root: t.TempDir()}}

	body := bytes.NewBufferString(`{"path": "../outside"}`)
	rec := httptest.NewRecorder()
	sh.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", body))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden_path", decodeAPIError(t, rec).Code)
}

func TestScanHandlerUnknownPathNotFound(t *testing.T) {
	sh := &ScanHandler{Scanner: &scanner.Scanner{Root: t.TempDir()}}

	body := bytes.NewBufferString(`{"path": "no/such/dir"}`)
	rec := httptest.NewRecorder()
	sh.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeAPIError(t, rec).Code)
}
