package keys

// Registry is the fixed set of unlock keys. It never changes after loading,
// so lookups need no locking.
type Registry struct {
	keys map[string]struct{}
}

func NewRegistry(keys []string) Registry {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}

	return Registry{keys: set}
}

func (r Registry) IsValid(key string) bool {
	if key == "" {
		return false
	}

	_, ok := r.keys[key]
	return ok
}

func (r Registry) Len() int {
	return len(r.keys)
}
