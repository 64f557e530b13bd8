package jobentity

import (
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
)

type Status string

const (
	PendingStatus Status = "pending"
	DoneStatus    Status = "done"
	ErrorStatus   Status = "error"
)

const fallbackFileName = "upload"

// Job has no stored record. Its state is whatever the artifact store holds
// under BaseName, so the ID doubles as the polling handle.
type Job struct {
	ID          string
	BaseName    string
	InputKey    string
	SubmittedAt time.Time
}

func NewJob(originalFileName string, now time.Time) Job {
	id := uuid.NewString() + "_" + SanitizeFileName(originalFileName)

	return Job{
		ID:          id,
		BaseName:    BaseNameOf(id),
		InputKey:    id,
		SubmittedAt: now,
	}
}

func BaseNameOf(jobID string) string {
	return strings.TrimSuffix(jobID, filepath.Ext(jobID))
}

var (
	unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	handlePattern   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// SanitizeFileName keeps only ASCII letters, digits, '_', '-' and a single
// extension dot, so the result can never escape the storage prefix it is
// placed under and its base name never contains a dot.
func SanitizeFileName(name string) string {
	name = toASCII(name)
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	ext := filepath.Ext(name)
	stem := strings.Trim(strings.ReplaceAll(strings.TrimSuffix(name, ext), ".", "_"), "_")

	switch {
	case stem == "":
		return fallbackFileName
	case ext == "." || ext == "":
		return stem
	default:
		return stem + ext
	}
}

// toASCII decomposes accented letters so "é" survives as "e" instead of
// being dropped by the character filter.
func toASCII(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// ParseHandle accepts either the job ID handed out by Submit or its base
// name, and returns the base name. ok is false for anything this service
// could not have issued.
func ParseHandle(handle string) (baseName string, ok bool) {
	handle = strings.TrimSpace(handle)
	if handle == "" || !handlePattern.MatchString(handle) || strings.Contains(handle, "..") {
		return "", false
	}

	baseName = BaseNameOf(handle)
	if baseName == "" || strings.Contains(baseName, ".") {
		return "", false
	}

	return baseName, true
}
