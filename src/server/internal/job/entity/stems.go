package jobentity

import (
	"github.com/cockroachdb/errors"
	"path"
)

type StemVariant string

const (
	TwoStems  StemVariant = "2stems"
	FourStems StemVariant = "4stems"
)

const DefaultStemExtension = "mp3"

var variantStems = map[StemVariant][]string{
	TwoStems:  {"vocals", "accompaniment"},
	FourStems: {"vocals", "drums", "bass", "other"},
}

// StemSet is the ordered list of outputs the backend is expected to write
// for every job. The trigger payload and the poll check must use the same
// set, so it is built once at startup and passed to both.
type StemSet struct {
	Names     []string
	Extension string
}

func NewStemSet(variant StemVariant) (StemSet, error) {
	names, ok := variantStems[variant]
	if !ok {
		return StemSet{}, errors.Newf("Unrecognized stem variant %q", variant)
	}

	return StemSet{
		Names:     append([]string(nil), names...),
		Extension: DefaultStemExtension,
	}, nil
}

func (s StemSet) ResultKey(baseName string, stem string) string {
	leaf := stem
	if s.Extension != "" {
		leaf = stem + "." + s.Extension
	}

	return path.Join(baseName, leaf)
}

func (s StemSet) ResultKeys(baseName string) map[string]string {
	keys := make(map[string]string, len(s.Names))
	for _, stem := range s.Names {
		keys[stem] = s.ResultKey(baseName, stem)
	}

	return keys
}
