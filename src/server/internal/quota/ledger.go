package quota

import (
	"context"
	"github.com/cockroachdb/errors/domains"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
)

var UnavailableMark = domains.New("quota_unavailable")

// Ledger tracks free uses and unlock state per identity key. Consume must
// check and increment as one step, concurrent callers never both take the
// last free use.
type Ledger interface {
	Consume(ctx context.Context, id identity.Identity) (Decision, error)
	Unlock(ctx context.Context, id identity.Identity) error
	Refund(ctx context.Context, id identity.Identity) error
}

type Decision struct {
	Allowed  bool
	Unlocked bool
	// Remaining is the lowest count of free uses left across the identity's
	// keys after this call. Meaningless when Unlocked.
	Remaining int
}

type record struct {
	uses     int
	unlocked bool
}
