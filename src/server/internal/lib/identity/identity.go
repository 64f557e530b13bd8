package identity

import (
	"net"
	"net/http"
	"strings"
)

const (
	forwardedForHeader = "X-Forwarded-For"
	addressKeyPrefix   = "addr:"
	sessionKeyPrefix   = "session:"
)

// Identity is who a request counts against. Address is always set, the
// session token only when the client carries a valid session cookie.
type Identity struct {
	Address      string
	SessionToken string
}

// Keys lists every ledger key for this identity. Quota is checked against
// all of them, so dropping the cookie never resets the address count.
func (i Identity) Keys() []string {
	keys := []string{addressKeyPrefix + i.Address}
	if i.SessionToken != "" {
		keys = append(keys, sessionKeyPrefix+i.SessionToken)
	}

	return keys
}

func (i Identity) String() string {
	return strings.Join(i.Keys(), ",")
}

// ClientAddress takes the first X-Forwarded-For entry when present, and
// falls back to the host part of the peer address.
func ClientAddress(r *http.Request) string {
	if forwarded := r.Header.Get(forwardedForHeader); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
