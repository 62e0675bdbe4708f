package store

import "strings"

// DependencyTable maps a key namespace to the namespaces whose cached
// entries go stale when a key in it is written or deleted.
//
// With {"runs": {"tenants"}}, a write to "runs/acme/2025-01" evicts
// "tenants/acme" and everything under "tenants/acme/". The tenant id is the
// second path segment of the written key.
type DependencyTable map[string][]string

// DefaultDependencies is the table used by New unless WithDependencies
// replaces it.
func DefaultDependencies() DependencyTable {
	return DependencyTable{
		"runs": {"tenants"},
	}
}

// matcher returns a predicate selecting the cache keys a write to key
// invalidates, or nil when nothing depends on key.
func (d DependencyTable) matcher(key string) func(string) bool {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 2 || parts[1] == "" {
		return nil
	}
	dependents := d[parts[0]]
	if len(dependents) == 0 {
		return nil
	}

	tenant := parts[1]
	return func(candidate string) bool {
		for _, ns := range dependents {
			root := ns + "/" + tenant
			if candidate == root || strings.HasPrefix(candidate, root+"/") {
				return true
			}
		}
		return false
	}
}
