package proof_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/proof"
)

type filePart struct {
	name    string
	content string
}

func upload(t *testing.T, e *echo.Echo, parts ...filePart) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	for _, p := range parts {
		part, err := w.CreateFormFile("files", p.name)
		require.NoError(t, err)

		_, err = part.Write([]byte(p.content))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/proofs/upload", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestUploadAndLoad(t *testing.T) {
	t.Parallel()

	s := &proof.ProofService{ProofDir: t.TempDir(), Clock: clockwork.NewFakeClock()}

	e := echo.New()
	s.Routes(e)

	rec := upload(t, e, filePart{"a.mp4", "first"}, filePart{"b.jpg", "second"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp proof.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	a := sha256.Sum256([]byte("first"))
	b := sha256.Sum256([]byte("second"))
	expected := dare.HashOf(append(a[:], b[:]...))

	assert.Equal(t, expected, resp.ProofHash)

	req := httptest.NewRequest(http.MethodGet, "/api/proofs/"+resp.UploadID, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var index proof.ProofIndex
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &index))

	require.Len(t, index.Files, 2)
	assert.Equal(t, "a.mp4", index.Files[0].Name)
	assert.Equal(t, int64(5), index.Files[0].Size)
	assert.Equal(t, dare.Hash(a), index.Files[0].SHA256)
	assert.Equal(t, expected, index.ProofHash)
}

func TestUploadRejectsBadInput(t *testing.T) {
	t.Parallel()

	s := &proof.ProofService{ProofDir: t.TempDir(), Clock: clockwork.NewFakeClock()}

	e := echo.New()
	s.Routes(e)

	rec := upload(t, e)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, e, filePart{"index.json", "{}"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := &proof.ProofService{ProofDir: dir, Clock: clockwork.NewFakeClock()}

	e := echo.New()
	s.Routes(e)

	rec := upload(t, e, filePart{"clip.mp4", "first"}, filePart{"clip.mp4", "second"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadUnknownUpload(t *testing.T) {
	t.Parallel()

	s := &proof.ProofService{ProofDir: t.TempDir(), Clock: clockwork.NewFakeClock()}

	_, err := s.Load("not-a-uuid")
	require.ErrorIs(t, err, proof.ErrInvalidUploadID)

	_, err = s.Load("0192f0a4-7d1e-7000-8000-000000000000")
	require.ErrorIs(t, err, proof.ErrUploadNotFound)
}
