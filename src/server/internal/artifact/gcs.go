package artifact

import (
	"cloud.google.com/go/storage"
	"context"
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
	"google.golang.org/api/option"
	"io"
)

const googleStorageHost = "https://storage.googleapis.com"

var _ Store = GCSStore{}

type GCSStore struct {
	client *storage.Client
	urls   URLGenerator
}

func NewGCSStoreFromConfig(ctx context.Context, storageConfig config.GoogleCloudStorage) (GCSStore, error) {
	opts := []option.ClientOption{}
	if storageConfig.SecretKey != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(storageConfig.SecretKey)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return GCSStore{}, errors.Wrap(err, "Failed to create google storage client")
	}

	return NewGCSStore(client, storageConfig), nil
}

func NewGCSStore(client *storage.Client, storageConfig config.GoogleCloudStorage) GCSStore {
	host := storageConfig.StorageHost
	if host == "" {
		host = googleStorageHost
	}

	return GCSStore{
		client: client,
		urls:   URLGenerator{Host: host, Bucket: storageConfig.BucketName},
	}
}

func (g GCSStore) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.urls.Bucket).Object(key)
}

func (g GCSStore) Put(ctx context.Context, key string, content io.Reader, _ int64, contentType string) error {
	// Closing the writer commits whatever was written, a failed copy has to
	// cancel its context instead.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.object(key).NewWriter(writeCtx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, content); err != nil {
		cancel()
		return mark.Wrap(err, StorageWriteMark, fmt.Sprintf("Failed to write %s to google storage", key))
	}

	if err := writer.Close(); err != nil {
		return mark.Wrap(err, StorageWriteMark, fmt.Sprintf("Failed to finish writing %s to google storage", key))
	}

	return nil
}

func (g GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.object(key).Attrs(ctx)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, mark.Wrap(err, StorageReadMark, fmt.Sprintf("Failed to read attributes of %s", key))
	}
}

func (g GCSStore) PublicURL(key string) string {
	return g.urls.URL(key)
}

func (g GCSStore) Bucket() string {
	return g.urls.Bucket
}

func (g GCSStore) Close() error {
	return g.client.Close()
}
