package joberrors

import (
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
)

const (
	MissingFileCode        = api.ErrorCode("missing_file")
	StorageWriteFailedCode = api.ErrorCode("storage_write_failed")
	QuotaUnavailableCode   = api.ErrorCode("quota_unavailable")
	InvalidJobIDCode       = api.ErrorCode("invalid_job_id")
)

const InvalidKeyCode = api.ErrorCode("invalid_key")
