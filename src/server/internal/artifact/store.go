package artifact

import (
	"context"
	"github.com/cockroachdb/errors/domains"
	"io"
	"strings"
)

var (
	StorageWriteMark = domains.New("storage_write_failed")
	StorageReadMark  = domains.New("storage_read_failed")
)

// Store is the blob store holding uploads and the backend's results.
//
// Exists separates the three outcomes a caller has to tell apart: (true,
// nil) found, (false, nil) not there yet, and a StorageReadMark error when
// the store could not be asked at all.
type Store interface {
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
	Bucket() string
}

// URLGenerator builds public object URLs as <host>/<bucket>/<key>.
type URLGenerator struct {
	Host   string
	Bucket string
}

func (g URLGenerator) URL(key string) string {
	return joinURL(g.Host, g.Bucket, key)
}

func joinURL(host string, elems ...string) string {
	url := strings.TrimRight(host, "/")
	for _, elem := range elems {
		if elem = strings.Trim(elem, "/"); elem != "" {
			url += "/" + elem
		}
	}

	return url
}
