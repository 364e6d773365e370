package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftflow/giftflow/internal/storage"
)

func TestStorage_UploadAndSignedURL(t *testing.T) {
	s := New("http://localhost:8080")

	err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "events/1/cover.png",
		ContentType: "image/png",
		Size:        4,
		Data:        strings.NewReader("data"),
	})
	require.NoError(t, err)

	data, ok := s.Get("events/1/cover.png")
	require.True(t, ok)
	assert.Equal(t, []byte("data"), data)

	url, err := s.SignedURL(context.Background(), "events/1/cover.png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "events/1/cover.png")
	assert.Contains(t, url, "expires=")
}

func TestStorage_SignedURL_MissingKey(t *testing.T) {
	s := New("http://localhost:8080")

	_, err := s.SignedURL(context.Background(), "nope", time.Hour)
	assert.Error(t, err)
}

func TestStorage_Delete(t *testing.T) {
	s := New("http://localhost:8080")

	require.NoError(t, s.Upload(context.Background(), &storage.UploadInput{
		Key:  "k",
		Data: strings.NewReader("x"),
	}))
	require.NoError(t, s.Delete(context.Background(), "k"))

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.Error(t, s.Delete(context.Background(), "k"))
}
