package port

import "context"

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Content  []byte
}

// FileStorage stores uploaded files under generated names.
type FileStorage interface {
	// Store writes the upload under directory/ownerID with a generated
	// name tagged by kind and returns the relative path
	Store(ctx context.Context, upload Upload, directory string, ownerID int64, kind string) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	// Delete is a no-op when the file is absent
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for path, or "" when the file is missing
	URL(ctx context.Context, path string) string
}
