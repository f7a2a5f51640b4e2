package printing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// PDFStorage defines the interface for archiving rendered documents
type PDFStorage interface {
	// Store saves a PDF under the given relative path
	Store(ctx context.Context, path string, data []byte) error
	// Get retrieves an archived PDF by its relative path
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Exists reports whether an archive entry is present
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes an archived PDF
	Delete(ctx context.Context, path string) error
}

// FileSystemStorage archives PDFs on the local file system under a base
// directory. Paths are relative and validated against traversal.
type FileSystemStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileSystemStorage creates a file system archive rooted at baseDir
func NewFileSystemStorage(baseDir string, logger *zap.Logger) (*FileSystemStorage, error) {
	if baseDir == "" {
		baseDir = "./archives"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create archive directory: %s", baseDir), err)
	}

	return &FileSystemStorage{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Store saves a PDF under {base}/{path}, creating intermediate directories
func (s *FileSystemStorage) Store(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if len(data) == 0 {
		return NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to create directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}

	s.logger.Info("PDF archived",
		zap.String("path", path),
		zap.Int("size", len(data)))
	return nil
}

// Get retrieves an archived PDF by its relative path
func (s *FileSystemStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewRenderError(ErrCodeStorageFailed, "PDF not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open PDF file", err)
	}
	return file, nil
}

// Exists reports whether an archive entry is present
func (s *FileSystemStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, NewRenderError(ErrCodeStorageFailed, "failed to stat PDF file", err)
	}
	return true, nil
}

// Delete removes an archived PDF. Deleting a missing entry is not an error.
func (s *FileSystemStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete PDF file", err)
	}

	s.logger.Info("PDF deleted", zap.String("path", path))
	return nil
}

// resolve validates a relative path and joins it under the base directory.
// Absolute paths and ".." components are rejected before normalization so
// traversal cannot hide behind a clean.
func (s *FileSystemStorage) resolve(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || filepath.IsAbs(cleanPath) || containsDotDot(path) {
		s.logger.Warn("blocked invalid archive path", zap.String("path", path))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	fullPath := filepath.Join(s.baseDir, cleanPath)

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve base path", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve file path", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("path", path),
			zap.String("resolved", absPath))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	return fullPath, nil
}

func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var _ PDFStorage = (*FileSystemStorage)(nil)
