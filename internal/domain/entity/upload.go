package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateUpload checks a file's extension and size before it is stored.
// imagesOnly excludes PDFs, for documentation photos.
func ValidateUpload(field, filename string, size int64, imagesOnly bool) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case filename == "" || size == 0:
		return FieldError(field, "file is required")
	case !AllowedUploadExtensions[ext] || (imagesOnly && ext == ".pdf"):
		if imagesOnly {
			return FieldError(field, "file must be an image (jpg, jpeg, png, gif, webp, svg)")
		}
		return FieldError(field, "file must be an image or a PDF")
	case size > MaxUploadBytes:
		return FieldError(field, fmt.Sprintf("file must not exceed %d KB", MaxUploadBytes/1024))
	}
	return nil
}
