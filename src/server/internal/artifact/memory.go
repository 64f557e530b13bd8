package artifact

import (
	"bytes"
	"context"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/errors/mark"
	"io"
	"sync"
)

var (
	NetworkFailure = errors.New("Network failure")
)

var _ Store = &MemoryStore{}

type Object struct {
	Content     []byte
	ContentType string
}

// MemoryStore backs development and tests. WriteUnavailable and
// ReadUnavailable make the matching calls fail as if the network was down.
type MemoryStore struct {
	WriteUnavailable bool
	ReadUnavailable  bool

	urls    URLGenerator
	mutex   sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore(host string, bucket string) *MemoryStore {
	return &MemoryStore{
		urls:    URLGenerator{Host: host, Bucket: bucket},
		objects: make(map[string]Object),
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, content io.Reader, _ int64, contentType string) error {
	if m.WriteUnavailable {
		return mark.Wrap(NetworkFailure, StorageWriteMark, "Failed to put object")
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, content); err != nil {
		return mark.Wrap(err, StorageWriteMark, "Failed to read upload content")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[key] = Object{Content: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	if m.ReadUnavailable {
		return false, mark.Wrap(NetworkFailure, StorageReadMark, "Failed to check object")
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.urls.URL(key)
}

func (m *MemoryStore) Bucket() string {
	return m.urls.Bucket
}

func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	obj, ok := m.objects[key]
	return obj, ok
}

// Seed stores an object directly, the way the processing backend would drop
// a finished stem into the bucket.
func (m *MemoryStore) Seed(key string, content []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[key] = Object{Content: content}
}

func (m *MemoryStore) Delete(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.objects, key)
}

func (m *MemoryStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.objects)
}
