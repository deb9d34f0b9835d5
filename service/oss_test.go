package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", contentTypeFor("generations/g1/video.mp4"))
	assert.Equal(t, "image/png", contentTypeFor("cover.png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}

func TestArchiveVideo_SourceUnavailable(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer src.Close()

	client, err := minio.New("127.0.0.1:1", &minio.Options{
		Creds: credentials.NewStaticV4("key", "secret", ""),
	})
	require.NoError(t, err)

	_, err = NewMinIOArchiver(client, "generations").ArchiveVideo(context.Background(), src.URL+"/v.mp4", "generations/g1/video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download status: 404")
}
