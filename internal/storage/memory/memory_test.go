package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetalMehta7/chillTube-backend/internal/storage"
)

func TestUpload_StoresAndReturnsURL(t *testing.T) {
	s := New("http://blobs.local")

	res, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "avatars/u-1.png",
		ContentType: "image/png",
		Size:        4,
		Data:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://blobs.local/avatars/u-1.png", res.URL)

	got, ok := s.Get("avatars/u-1.png")
	require.True(t, ok)
	assert.Equal(t, []byte("data"), got)
}

func TestUpload_ForcedFailure(t *testing.T) {
	s := New("http://blobs.local")
	s.FailPrefixes = []string{"avatars/"}

	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "avatars/u-1.png",
		Data: strings.NewReader("data"),
	})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	s := New("http://blobs.local")

	require.NoError(t, s.Delete(context.Background(), "nope"))

	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "k",
		Data: strings.NewReader("v"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), "k"))
	assert.Equal(t, 0, s.Len())
}
