package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(Config{
		BasePath:  t.TempDir(),
		BaseURL:   "http://localhost:4000/api/v1/files",
		UploadURL: "http://localhost:4000/api/v1/uploads/local",
	})
	require.NoError(t, err)
	return s
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	require.NoError(t, s.Save(ctx, "avatar/u1/a.png", strings.NewReader("png-bytes"), "image/png"))

	ok, err := s.Exists(ctx, "avatar/u1/a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	size, err := s.GetSize(ctx, "avatar/u1/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	rc, err := s.Get(ctx, "avatar/u1/a.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(body))

	url, err := s.GetURL(ctx, "avatar/u1/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/api/v1/files/avatar/u1/a.png", url)

	require.NoError(t, s.Delete(ctx, "avatar/u1/a.png"))
	ok, err = s.Exists(ctx, "avatar/u1/a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_Missing(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.GetSize(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = s.Get(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newTestLocal(t)
	err := s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStorage_PresignPut(t *testing.T) {
	s := newTestLocal(t)
	url, err := s.PresignPut(context.Background(), "/avatar/u1/a.png", "image/png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/api/v1/uploads/local/avatar/u1/a.png", url)
}

func TestCleanKey(t *testing.T) {
	k, err := CleanKey("logos//abc.png")
	require.NoError(t, err)
	assert.Equal(t, "logos/abc.png", k)

	_, err = CleanKey("")
	assert.Error(t, err)
	_, err = CleanKey("a/../../b")
	assert.Error(t, err)
}

func TestObjectStorage_PresignPut(t *testing.T) {
	s, err := NewCloudflareR2Storage(Config{
		Bucket:    "assets",
		Endpoint:  "https://account.r2.cloudflarestorage.com",
		AccessKey: "key",
		SecretKey: "secret",
		BaseURL:   "https://assets.bankbang.cn",
	})
	require.NoError(t, err)

	url, err := s.PresignPut(context.Background(), "avatar/u1/a.png", "image/png", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "https://account.r2.cloudflarestorage.com/assets/avatar/u1/a.png")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")

	public, err := s.GetURL(context.Background(), "avatar/u1/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://assets.bankbang.cn/avatar/u1/a.png", public)
}
