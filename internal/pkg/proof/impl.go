package proof

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/dare"
)

var (
	ErrNoFiles         = errors.New("no files uploaded")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrInvalidUploadID = errors.New("invalid upload id")
	ErrUploadNotFound  = errors.New("upload not found")
)

// ProofService stores proof media off-ledger. Only the resulting hash is
// ever submitted to a dare.
type ProofService struct {
	ProofDir string

	Clock clockwork.Clock
}

func NewProofService(i do.Injector) (*ProofService, error) {
	proofDir := do.MustInvokeNamed[string](i, "proof-dir")
	clock := do.MustInvoke[clockwork.Clock](i)

	result := &ProofService{
		ProofDir: proofDir,

		Clock: clock,
	}

	return result, nil
}

func (s *ProofService) Routes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	proofGroup := apiGroup.Group("/proofs")

	proofGroup.POST("/upload", s.Upload)
	proofGroup.GET("/:upload_id", s.GetIndex)
}

func (s *ProofService) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to parse multipart form")
	}

	index, err := s.Store(form.File["files"])
	if err != nil {
		if errors.Is(err, ErrNoFiles) || errors.Is(err, ErrInvalidFileName) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store proof").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusAccepted, UploadResponse{
		UploadID:  index.UploadID,
		ProofHash: index.ProofHash,
	})
}

func (s *ProofService) GetIndex(c echo.Context) error {
	index, err := s.Load(c.Param("upload_id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUploadID):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUploadNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load proof").SetInternal(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, index)
}

// Store writes files under a fresh upload directory and records their
// digests in index.json.
//
//nolint:cyclop
func (s *ProofService) Store(files []*multipart.FileHeader) (*ProofIndex, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	seen := make(map[string]struct{}, len(files))

	for _, file := range files {
		name := filepath.Base(file.Filename)
		if name != file.Filename || name == "." || name == indexFile {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, file.Filename)
		}

		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q uploaded twice", ErrInvalidFileName, file.Filename)
		}

		seen[name] = struct{}{}
	}

	_uploadID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload id: %w", err)
	}

	uploadID := _uploadID.String()
	uploadDir := filepath.Join(s.ProofDir, uploadID)

	err = os.MkdirAll(uploadDir, 0700)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	index, err := s.storeAll(uploadID, uploadDir, files)
	if err != nil {
		_ = os.RemoveAll(uploadDir)

		return nil, err
	}

	return index, nil
}

func (s *ProofService) storeAll(uploadID, uploadDir string, files []*multipart.FileHeader) (*ProofIndex, error) {
	index := ProofIndex{
		UploadID:  uploadID,
		Timestamp: s.Clock.Now().UTC(),
		Files:     make([]ProofFile, 0, len(files)),
	}

	commitment := sha256.New()

	for _, file := range files {
		stored, err := storeFile(uploadDir, file)
		if err != nil {
			return nil, err
		}

		commitment.Write(stored.SHA256[:])

		index.Files = append(index.Files, stored)
	}

	copy(index.ProofHash[:], commitment.Sum(nil))

	indexData, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}

	err = os.WriteFile(filepath.Join(uploadDir, indexFile), indexData, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to write index file: %w", err)
	}

	return &index, nil
}

func (s *ProofService) Load(uploadID string) (*ProofIndex, error) {
	parsed, err := uuid.Parse(uploadID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUploadID, uploadID)
	}

	//nolint:gosec
	indexData, err := os.ReadFile(filepath.Join(s.ProofDir, parsed.String(), indexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
		}

		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index ProofIndex

	err = json.Unmarshal(indexData, &index)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

func storeFile(uploadDir string, file *multipart.FileHeader) (ProofFile, error) {
	src, err := file.Open()
	if err != nil {
		return ProofFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}

	defer func() {
		_ = src.Close()
	}()

	//nolint:gosec
	dst, err := os.OpenFile(filepath.Join(uploadDir, file.Filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return ProofFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	defer func() {
		_ = dst.Close()
	}()

	h := sha256.New()

	size, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return ProofFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	result := ProofFile{Name: file.Filename, Size: size, SHA256: dare.Hash{}}
	copy(result.SHA256[:], h.Sum(nil))

	return result, nil
}
