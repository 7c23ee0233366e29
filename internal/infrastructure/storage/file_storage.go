package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidPath is returned for paths that escape the storage root
var ErrInvalidPath = errors.New("invalid storage path")

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// LocalFileStorage implements port.FileStorage for local filesystem
type LocalFileStorage struct {
	baseDir   string
	publicURL string
	logger    *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage. publicURL prefixes
// the relative paths handed out by URL.
func NewLocalFileStorage(baseDir, publicURL string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Store writes the upload as directory/ownerID/kind_<uuid><ext> and returns
// that relative path
func (s *LocalFileStorage) Store(ctx context.Context, upload port.Upload, directory string, ownerID int64, kind string) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext != "" && unsafeSegment.MatchString(ext[1:]) {
		ext = ""
	}
	name := sanitizeSegment(kind)
	if name == "" {
		name = "file"
	}
	rel := path.Join(sanitizeSegment(directory), strconv.FormatInt(ownerID, 10), name+"_"+uuid.NewString()+ext)

	fullPath, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(fullPath, upload.Content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File stored",
		zap.String("path", rel),
		zap.Int("size", len(upload.Content)))
	return rel, nil
}

// Read reads content from the specified relative path
func (s *LocalFileStorage) Read(ctx context.Context, rel string) ([]byte, error) {
	fullPath, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to read file",
				zap.String("path", fullPath),
				zap.Error(err))
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Exists checks if a regular file exists at the specified relative path
func (s *LocalFileStorage) Exists(ctx context.Context, rel string) bool {
	fullPath, err := s.resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a file; a missing file is not an error
func (s *LocalFileStorage) Delete(ctx context.Context, rel string) error {
	fullPath, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Error("Failed to delete file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.logger.Debug("File deleted", zap.String("path", rel))
	return nil
}

// URL returns the public URL of a stored file, or "" when it is missing
func (s *LocalFileStorage) URL(ctx context.Context, rel string) string {
	if rel == "" || !s.Exists(ctx, rel) {
		return ""
	}
	return s.publicURL + "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

// resolve maps a relative path under baseDir, rejecting traversal
func (s *LocalFileStorage) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(rel))

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return absPath, nil
}

// sanitizeSegment keeps only characters that are safe in a single path
// segment
func sanitizeSegment(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return unsafeSegment.ReplaceAllString(name, "")
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
