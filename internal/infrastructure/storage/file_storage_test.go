package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) (*LocalFileStorage, string) {
	dir := t.TempDir()
	return NewLocalFileStorage(dir, "http://localhost:8080/api/files/", zap.NewNop()), dir
}

func TestLocalFileStorage_StoreReadDelete(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	rel, err := s.Store(ctx, port.Upload{Filename: "Receipt.PDF", Size: 3, Content: []byte("pdf")}, "reports", 42, "transport_receipt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "reports/42/transport_receipt_"))
	assert.True(t, strings.HasSuffix(rel, ".pdf"))

	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(content))

	got, err := s.Read(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), got)
	assert.Equal(t, "http://localhost:8080/api/files/"+rel, s.URL(ctx, rel))

	require.NoError(t, s.Delete(ctx, rel))
	assert.False(t, s.Exists(ctx, rel))
	assert.Empty(t, s.URL(ctx, rel))
	assert.NoError(t, s.Delete(ctx, rel), "deleting a missing file is a no-op")
}

func TestLocalFileStorage_NamesAreUnique(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	upload := port.Upload{Filename: "a.jpg", Size: 1, Content: []byte("x")}

	first, err := s.Store(ctx, upload, "documentation", 1, "photo")
	require.NoError(t, err)
	second, err := s.Store(ctx, upload, "documentation", 1, "photo")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestLocalFileStorage_RejectsTraversal(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, rel := range []string{"../outside.txt", "reports/../../etc/passwd", "/etc/passwd", ""} {
		_, err := s.Read(ctx, rel)
		assert.True(t, errors.Is(err, ErrInvalidPath), rel)
		assert.False(t, s.Exists(ctx, rel), rel)
	}

	rel, err := s.Store(ctx, port.Upload{Filename: "x.png", Content: []byte("x")}, "../../evil", 1, "../kind")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "evil/1/kind_"))
}
