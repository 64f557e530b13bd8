package feedbackstorage

import (
	"github.com/cockroachdb/errors"
	"os"
	"sync"
)

const entrySeparator = "\n---\n"

// FileLog appends each entry followed by a separator line. Writes from
// concurrent requests never interleave.
type FileLog struct {
	path  string
	mutex sync.Mutex
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (f *FileLog) Append(message string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "Failed to open feedback log %s", f.path)
	}

	if _, err = file.WriteString(message + entrySeparator); err != nil {
		_ = file.Close()
		return errors.Wrap(err, "Failed to write feedback entry")
	}

	if err = file.Close(); err != nil {
		return errors.Wrap(err, "Failed to close feedback log")
	}

	return nil
}
