package blob

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/errs"
	"parley/pkg/store/storetest"
)

func newStore(t *testing.T, max int64) *Store {
	s, err := New(storetest.Open(t), Options{
		Dir:           filepath.Join(t.TempDir(), "blobs"),
		MaxSize:       max,
		PublicBaseURL: "https://chat.example.com/",
	})
	require.NoError(t, err)
	return s
}

func TestUploadOpenAndURL(t *testing.T) {
	s := newStore(t, 0)

	b, err := s.Upload("../../etc/cat.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "cat.png", b.Name)
	assert.Equal(t, int64(9), b.Size)

	meta, rc, err := s.Open(b.Handle)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", meta.ContentType)

	url, ok, err := s.URL(b.Handle)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://chat.example.com/v1/files/"+b.Handle, url)
}

func TestURLOfUnknownHandleIsAbsent(t *testing.T) {
	s := newStore(t, 0)
	_, ok, err := s.URL("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Open("does-not-exist")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestUploadLimits(t *testing.T) {
	s := newStore(t, 4)

	_, err := s.Upload("big.bin", "", []byte("12345"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = s.Upload("empty.bin", "", nil)
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	_, err = s.Upload("  ", "", []byte("1"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}
