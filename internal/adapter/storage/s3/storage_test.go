package s3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineStorage(t *testing.T, publicURL string) *Storage {
	t.Helper()
	client, err := minio.New("minio.local:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &Storage{client: client, bucket: "verbfy", publicURL: publicURL, logger: logger.NewNop()}
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://minio.local:9000/verbfy/materials/a.pdf", offlineStorage(t, "").objectURL("materials/a.pdf"))
	assert.Equal(t, "https://cdn.verbfy.test/verbfy/materials/a.pdf", offlineStorage(t, "https://cdn.verbfy.test").objectURL("materials/a.pdf"))
}

// Presigning is local when the region is known, so no server is needed.
func TestPresignedURL_SetsDisposition(t *testing.T) {
	s := offlineStorage(t, "")
	raw, err := s.PresignedURL(context.Background(), "materials/a.pdf", 15*time.Minute, `past "tense".pdf`)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/verbfy/materials/a.pdf", u.Path)
	assert.Equal(t, `attachment; filename="past tense.pdf"`, u.Query().Get("response-content-disposition"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}
